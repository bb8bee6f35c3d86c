package rerank

import (
	"context"
	"log/slog"

	"github.com/soundprediction/predmap/pkg/llm"
	"github.com/soundprediction/predmap/pkg/ontology"
	"github.com/soundprediction/predmap/pkg/search"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
)

// Reranker finalizes edges: each edge leaves with a TopChoice, whatever the
// chat model does. A confident answer wins; an explicit "none", a malformed
// response, or a failed call all fall back to the top retrieval candidate.
type Reranker struct {
	client      llm.Client
	toolkit     *ontology.Toolkit
	model       string
	concurrency int
}

// NewReranker creates a Reranker. model is the chat model name recorded as
// the selector on model-chosen answers.
func NewReranker(client llm.Client, toolkit *ontology.Toolkit, model string, concurrency int) *Reranker {
	if concurrency <= 0 {
		concurrency = utils.GetSemaphoreLimit()
	}
	return &Reranker{
		client:      client,
		toolkit:     toolkit,
		model:       model,
		concurrency: concurrency,
	}
}

// Rerank attaches predicate choices, prompts the model for every edge
// concurrently, and writes each edge's TopChoice. Every edge reaches a
// terminal state; the returned error slice reports chat failures for
// observability only.
func (r *Reranker) Rerank(ctx context.Context, edges []*types.Edge, method types.RetrievalMethod) []error {
	if len(edges) == 0 {
		return nil
	}

	BuildBatch(edges, method, r.toolkit)

	fns := make([]func() error, len(edges))
	for i, edge := range edges {
		edge := edge
		fns[i] = func() error {
			return r.rerankOne(ctx, edge, method)
		}
	}
	return utils.SemaphoreGather(ctx, r.concurrency, fns...)
}

func (r *Reranker) rerankOne(ctx context.Context, edge *types.Edge, method types.RetrievalMethod) error {
	defer func() { edge.PredicateChoices = nil }()

	if len(edge.Candidates) == 0 {
		slog.Warn("No predicate candidates found, cannot rerank",
			"relationship", edge.Relationship)
		edge.TopChoice = &types.TopChoice{Negated: "False"}
		return nil
	}

	var chatErr error
	result := ParseResult{Outcome: OutcomeUnparseable, Negated: "False"}

	resp, err := r.client.Chat(ctx, []types.Message{
		llm.NewUserMessage(Prompt(edge)),
	})
	if err != nil {
		chatErr = err
		slog.Error("Chat call failed, falling back to retrieval",
			"relationship", edge.Relationship, "error", err)
	} else {
		result = ExtractMappedPredicate(resp.Content, edge.PredicateChoices)
		if result.Outcome == OutcomeUnparseable {
			slog.Warn("Malformed chat response, falling back to retrieval",
				"relationship", edge.Relationship, "response", resp.Content)
		}
	}

	var predicate, negated, selector string
	switch result.Outcome {
	case OutcomeConfident:
		predicate = result.Predicate
		negated = result.Negated
		selector = r.model
	case OutcomeNone:
		// The model saw the choices and rejected them all; keep the best
		// retrieval candidate but preserve the parsed negation.
		predicate = r.fallbackPredicate(edge)
		negated = result.Negated
		selector = method.Selector()
	default:
		predicate = r.fallbackPredicate(edge)
		negated = "False"
		selector = method.Selector()
	}

	predicate, oaq, odq := r.resolveQualified(predicate)
	edge.TopChoice = &types.TopChoice{
		Predicate:                predicate,
		ObjectAspectQualifier:    oaq,
		ObjectDirectionQualifier: odq,
		Negated:                  negated,
		Selector:                 selector,
	}
	return chatErr
}

func (r *Reranker) fallbackPredicate(edge *types.Edge) string {
	top, _ := edge.TopCandidate()
	return search.CanonicalPredicate(top.MappedPredicate)
}

// resolveQualified replaces a predicate with its qualified form when the
// ontology defines one.
func (r *Reranker) resolveQualified(predicate string) (string, string, string) {
	q, ok := r.toolkit.QualifiedForm(predicate)
	if !ok {
		return predicate, "", ""
	}
	return q.Predicate, q.ObjectAspectQualifier, q.ObjectDirectionQualifier
}
