package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/soundprediction/predmap/pkg/embedder"
	"github.com/soundprediction/predmap/pkg/ontology"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
)

// aggregatePlaces is the rounding applied to aggregated candidate scores.
const aggregatePlaces = 5

// Aggregator turns raw search hits into the deduplicated, ontology-expanded
// candidate list attached to each edge.
type Aggregator struct {
	embedder    embedder.Client
	toolkit     *ontology.Toolkit
	numResults  int
	concurrency int
}

// NewAggregator creates an Aggregator. numResults caps the hits requested per
// edge; concurrency bounds the per-edge fan-out.
func NewAggregator(emb embedder.Client, toolkit *ontology.Toolkit, numResults, concurrency int) *Aggregator {
	if numResults <= 0 {
		numResults = 10
	}
	if concurrency <= 0 {
		concurrency = utils.GetSemaphoreLimit()
	}
	return &Aggregator{
		embedder:    emb,
		toolkit:     toolkit,
		numResults:  numResults,
		concurrency: concurrency,
	}
}

// AttachCandidates embeds each edge's relationship phrase, runs the searcher,
// and writes the aggregated candidates onto the edge. Edges are processed
// concurrently; one edge's failure leaves its candidates empty without
// affecting siblings. The returned error slice is aligned with edges.
func (a *Aggregator) AttachCandidates(ctx context.Context, searcher Searcher, edges []*types.Edge) []error {
	if len(edges) == 0 {
		return nil
	}

	fns := make([]func() error, len(edges))
	for i, edge := range edges {
		edge := edge
		fns[i] = func() error {
			return a.attachOne(ctx, searcher, edge)
		}
	}

	errs := utils.SemaphoreGather(ctx, a.concurrency, fns...)
	for i, err := range errs {
		if err != nil {
			slog.Error("Candidate retrieval failed",
				"relationship", edges[i].Relationship, "error", err)
		}
	}
	return errs
}

func (a *Aggregator) attachOne(ctx context.Context, searcher Searcher, edge *types.Edge) error {
	edge.RetrievalMethod = searcher.Method().BatchLabel()

	if edge.RelationshipEmbedding == nil {
		v, err := a.embedder.EmbedSingle(ctx, edge.Relationship)
		if err != nil {
			return fmt.Errorf("failed to embed relationship %q: %w", edge.Relationship, err)
		}
		edge.RelationshipEmbedding = v
	}

	hits, err := searcher.Search(ctx, edge.Relationship, edge.RelationshipEmbedding, a.numResults)
	if err != nil {
		return fmt.Errorf("search failed for %q: %w", edge.Relationship, err)
	}

	edge.Candidates = a.aggregate(hits)
	return nil
}

// aggregate deduplicates hits by predicate keeping the best score, and adds
// the ontology inverse of each candidate at the same score. A predicate that
// shows up both directly and as an inverse keeps its maximum.
func (a *Aggregator) aggregate(hits []types.SearchHit) []types.Candidate {
	if len(hits) == 0 {
		return nil
	}

	best := make(map[string]float64)
	record := func(name string, score float64) {
		if cur, ok := best[name]; !ok || score > cur {
			best[name] = score
		}
	}

	for _, hit := range hits {
		name := StripPredicate(hit.MappedPredicate)
		if name == "" {
			continue
		}
		record(name, hit.Score)

		if inv, ok := a.toolkit.InverseOf(CanonicalPredicate(name)); ok {
			if invName := StripPredicate(inv); invName != "" {
				record(invName, hit.Score)
			}
		}
	}

	candidates := make([]types.Candidate, 0, len(best))
	for name, score := range best {
		candidates = append(candidates, types.Candidate{
			MappedPredicate: HumanReadable(name),
			Score:           utils.Round(score, aggregatePlaces),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].MappedPredicate < candidates[j].MappedPredicate
	})
	return candidates
}

// StripPredicate removes the biolink curie prefix and any negation suffix
// from a corpus predicate id.
func StripPredicate(raw string) string {
	name := strings.TrimPrefix(raw, "biolink:")
	name = strings.TrimSuffix(name, "_NEG")
	return strings.TrimSpace(name)
}

// HumanReadable converts an underscored predicate name to the spaced form
// shown to the reranking model.
func HumanReadable(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// CanonicalPredicate converts a predicate name (spaced or underscored,
// with or without prefix) to its biolink curie.
func CanonicalPredicate(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "biolink:")
	name = strings.ReplaceAll(name, " ", "_")
	return "biolink:" + name
}
