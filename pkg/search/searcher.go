// Package search retrieves the predicate corpus rows closest to a
// relationship phrase. Three interchangeable backends implement the Searcher
// interface: exact cosine scoring, a KD-tree nearest-neighbor index, and an
// external vector database.
package search

import (
	"context"
	"fmt"

	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/vectordb"
)

// scorePlaces is the rounding applied to backend scores.
const scorePlaces = 4

// Searcher finds corpus rows similar to a relationship phrase.
type Searcher interface {
	// Search returns up to numResults hits ordered descending by score.
	// A nil embedding yields (nil, nil): absence of an embedding is
	// propagated, not treated as a zero vector. An empty corpus yields an
	// empty, non-nil slice.
	Search(ctx context.Context, text string, embedding []float32, numResults int) ([]types.SearchHit, error)

	// Method identifies the backend.
	Method() types.RetrievalMethod
}

// New creates the Searcher for a retrieval method. The vectordb index may be
// nil unless method is MethodVectorDB.
func New(method types.RetrievalMethod, st *store.Store, index vectordb.Index) (Searcher, error) {
	switch method {
	case types.MethodCosine:
		return NewCosineSearcher(st), nil
	case types.MethodNearestNeighbor:
		return NewNeighborSearcher(st), nil
	case types.MethodVectorDB:
		if index == nil {
			return nil, fmt.Errorf("retrieval method %s requires a vector index", method)
		}
		return NewVectorDBSearcher(index), nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnknownRetrievalMethod, method)
}
