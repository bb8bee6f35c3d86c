package search

import (
	"context"
	"sync"

	"github.com/sjwhitworth/golearn/kdtree"
	"github.com/sjwhitworth/golearn/metrics/pairwise"
	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
)

// NeighborSearcher answers queries with a KD-tree over the normalized corpus
// embeddings. On unit vectors euclidean distance is monotone in cosine
// similarity, so the tree returns the same neighbors the exact backend would,
// and the score is recovered as 1 - d^2/2.
type NeighborSearcher struct {
	store *store.Store

	mu   sync.Mutex
	snap *store.Snapshot
	tree *kdtree.Tree
	rows []int
}

// NewNeighborSearcher creates the KD-tree backend. The tree is built lazily
// from the current corpus snapshot and rebuilt when the snapshot changes.
func NewNeighborSearcher(st *store.Store) *NeighborSearcher {
	return &NeighborSearcher{store: st}
}

// Method implements Searcher.
func (s *NeighborSearcher) Method() types.RetrievalMethod {
	return types.MethodNearestNeighbor
}

// Search implements Searcher.
func (s *NeighborSearcher) Search(ctx context.Context, text string, embedding []float32, numResults int) ([]types.SearchHit, error) {
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

	tree, rows, err := s.treeFor(snap)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []types.SearchHit{}, nil
	}

	normalized := utils.Normalize(embedding)
	if normalized == nil {
		return []types.SearchHit{}, nil
	}
	target := make([]float64, len(normalized))
	for i, v := range normalized {
		target[i] = float64(v)
	}

	k := numResults
	if k > len(rows) {
		k = len(rows)
	}
	if k <= 0 {
		return []types.SearchHit{}, nil
	}

	indexes, distances, err := tree.Search(k, pairwise.NewEuclidean(), target)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, len(indexes))
	for i, idx := range indexes {
		row := rows[idx]
		d := distances[i]
		hits = append(hits, types.SearchHit{
			Text:            snap.Texts[row],
			MappedPredicate: snap.Predicates[row],
			Score:           utils.Round(1-d*d/2, scorePlaces),
		})
	}
	return hits, nil
}

// treeFor returns the KD-tree for snap, building it on first use.
func (s *NeighborSearcher) treeFor(snap *store.Snapshot) (*kdtree.Tree, []int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == snap && s.tree != nil {
		return s.tree, s.rows, nil
	}

	var data [][]float64
	var rows []int
	for i, v := range snap.Normalized {
		if v == nil {
			continue
		}
		row := make([]float64, len(v))
		for j, f := range v {
			row[j] = float64(f)
		}
		data = append(data, row)
		rows = append(rows, i)
	}

	tree := kdtree.New()
	if len(data) > 0 {
		if err := tree.Build(data); err != nil {
			return nil, nil, err
		}
	}

	s.snap = snap
	s.tree = tree
	s.rows = rows
	return tree, rows, nil
}
