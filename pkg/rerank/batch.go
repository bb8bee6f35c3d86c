package rerank

import (
	"github.com/soundprediction/predmap/pkg/ontology"
	"github.com/soundprediction/predmap/pkg/types"
)

// BuildBatch prepares edges for reranking: it tags each edge with the
// retrieval method label and attaches the predicate_choices map, pairing each
// candidate with its ontology description. A candidate with no description
// describes itself.
func BuildBatch(edges []*types.Edge, method types.RetrievalMethod, toolkit *ontology.Toolkit) {
	label := method.BatchLabel()
	for _, edge := range edges {
		edge.RetrievalMethod = label

		choices := make(map[string]string, len(edge.Candidates))
		for _, c := range edge.Candidates {
			choices[c.MappedPredicate] = toolkit.Description(c.MappedPredicate)
		}
		edge.PredicateChoices = choices
	}
}
