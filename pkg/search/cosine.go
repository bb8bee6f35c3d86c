package search

import (
	"context"

	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
)

// CosineSearcher scores every corpus row with exact cosine similarity. It is
// the default backend: brute force, but exact, and fast enough for corpora of
// a few thousand predicate phrases.
type CosineSearcher struct {
	store *store.Store
}

// NewCosineSearcher creates the exact cosine backend.
func NewCosineSearcher(st *store.Store) *CosineSearcher {
	return &CosineSearcher{store: st}
}

// Method implements Searcher.
func (s *CosineSearcher) Method() types.RetrievalMethod {
	return types.MethodCosine
}

// Search implements Searcher.
func (s *CosineSearcher) Search(ctx context.Context, text string, embedding []float32, numResults int) ([]types.SearchHit, error) {
	if embedding == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return []types.SearchHit{}, nil
	}

	scores := make([]float64, snap.Len())
	for i, e := range snap.Entries {
		scores[i] = utils.CosineSimilarity(embedding, e.Embedding)
	}

	top := utils.TopKIndicesByScore(scores, numResults)
	hits := make([]types.SearchHit, 0, len(top))
	for _, i := range top {
		hits = append(hits, types.SearchHit{
			Text:            snap.Texts[i],
			MappedPredicate: snap.Predicates[i],
			Score:           utils.Round(scores[i], scorePlaces),
		})
	}
	return hits, nil
}
