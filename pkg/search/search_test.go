package search

import (
	"context"
	"testing"

	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpusStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	require.NoError(t, st.Populate([]types.PredicateEntry{
		{Predicate: "biolink:treats", Text: "treats", Embedding: []float32{1, 0, 0}},
		{Predicate: "biolink:causes", Text: "causes", Embedding: []float32{0, 1, 0}},
		{Predicate: "biolink:affects", Text: "affects", Embedding: []float32{0.7, 0.7, 0}},
		{Predicate: "biolink:related_to", Text: "related to", Embedding: []float32{0, 0, 1}},
	}))
	return st
}

func TestCosineSearcherOrdersDescending(t *testing.T) {
	s := NewCosineSearcher(corpusStore(t))

	hits, err := s.Search(context.Background(), "treats", []float32{1, 0.1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "treats", hits[0].Text)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "hits not descending at %d", i)
	}
}

func TestCosineSearcherNilEmbedding(t *testing.T) {
	s := NewCosineSearcher(corpusStore(t))

	hits, err := s.Search(context.Background(), "treats", nil, 3)
	assert.NoError(t, err)
	assert.Nil(t, hits, "nil embedding must propagate as nil hits")
}

func TestCosineSearcherEmptyCorpus(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Populate(nil))
	s := NewCosineSearcher(st)

	hits, err := s.Search(context.Background(), "treats", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestCosineSearcherCapsResults(t *testing.T) {
	s := NewCosineSearcher(corpusStore(t))

	hits, err := s.Search(context.Background(), "treats", []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, 4, "numResults is a soft cap")
}

func TestNeighborSearcherAgreesWithCosine(t *testing.T) {
	st := corpusStore(t)
	exact := NewCosineSearcher(st)
	approx := NewNeighborSearcher(st)

	query := []float32{0.9, 0.2, 0.1}
	want, err := exact.Search(context.Background(), "treats", query, 2)
	require.NoError(t, err)
	got, err := approx.Search(context.Background(), "treats", query, 2)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].MappedPredicate, got[i].MappedPredicate, "neighbor %d differs", i)
		assert.InDelta(t, want[i].Score, got[i].Score, 0.001)
	}
}

func TestNeighborSearcherNilEmbedding(t *testing.T) {
	s := NewNeighborSearcher(corpusStore(t))

	hits, err := s.Search(context.Background(), "treats", nil, 3)
	assert.NoError(t, err)
	assert.Nil(t, hits)
}

// fakeIndex is an in-memory vectordb.Index for tests.
type fakeIndex struct {
	hits []types.SearchHit
	err  error
}

func (f *fakeIndex) Populate(ctx context.Context, entries []types.PredicateEntry) error {
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, embedding []float32, limit int) ([]types.SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Close() error { return nil }

func TestVectorDBSearcherRoundsScores(t *testing.T) {
	s := NewVectorDBSearcher(&fakeIndex{hits: []types.SearchHit{
		{Text: "treats", MappedPredicate: "biolink:treats", Score: 0.987654321},
	}})

	hits, err := s.Search(context.Background(), "treats", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.9877, hits[0].Score)
}

func TestVectorDBSearcherEmptyResult(t *testing.T) {
	s := NewVectorDBSearcher(&fakeIndex{})

	hits, err := s.Search(context.Background(), "treats", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestNewSelectsBackend(t *testing.T) {
	st := corpusStore(t)

	s, err := New(types.MethodCosine, st, nil)
	require.NoError(t, err)
	assert.Equal(t, types.MethodCosine, s.Method())

	s, err = New(types.MethodNearestNeighbor, st, nil)
	require.NoError(t, err)
	assert.Equal(t, types.MethodNearestNeighbor, s.Method())

	_, err = New(types.MethodVectorDB, st, nil)
	assert.Error(t, err, "vectordb method without an index must fail")

	s, err = New(types.MethodVectorDB, st, &fakeIndex{})
	require.NoError(t, err)
	assert.Equal(t, types.MethodVectorDB, s.Method())

	_, err = New(types.RetrievalMethod("bogus"), st, nil)
	assert.ErrorIs(t, err, types.ErrUnknownRetrievalMethod)
}
