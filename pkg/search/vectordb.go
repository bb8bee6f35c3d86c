package search

import (
	"context"

	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
	"github.com/soundprediction/predmap/pkg/vectordb"
)

// VectorDBSearcher delegates retrieval to an external vector index.
type VectorDBSearcher struct {
	index vectordb.Index
}

// NewVectorDBSearcher creates the external index backend.
func NewVectorDBSearcher(index vectordb.Index) *VectorDBSearcher {
	return &VectorDBSearcher{index: index}
}

// Method implements Searcher.
func (s *VectorDBSearcher) Method() types.RetrievalMethod {
	return types.MethodVectorDB
}

// Search implements Searcher.
func (s *VectorDBSearcher) Search(ctx context.Context, text string, embedding []float32, numResults int) ([]types.SearchHit, error) {
	if embedding == nil {
		return nil, nil
	}

	hits, err := s.index.Query(ctx, embedding, numResults)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		return []types.SearchHit{}, nil
	}

	for i := range hits {
		hits[i].Score = utils.Round(hits[i].Score, scorePlaces)
	}
	return hits, nil
}
