package predmap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/ontology"
	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEmbedder returns a scripted vector per text, or fallback when the text
// is not scripted.
type mapEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (m *mapEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = m.fallback
		}
	}
	return out, nil
}

func (m *mapEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mapEmbedder) Dimensions() int { return len(m.fallback) }
func (m *mapEmbedder) Close() error    { return nil }

// scriptedChat returns a fixed completion or error for every call.
type scriptedChat struct {
	content string
	err     error
}

func (s *scriptedChat) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.Response{Content: s.content}, nil
}

func (s *scriptedChat) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		LLM:    config.LLMConfig{Model: "test-model"},
		Rerank: config.RerankConfig{NumResults: 5, Concurrency: 2},
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	err := st.Populate([]types.PredicateEntry{
		{Predicate: "biolink:treats", Text: "treats", Embedding: []float32{1, 0, 0}},
		{Predicate: "biolink:causes", Text: "causes", Embedding: []float32{0, 1, 0}},
		{Predicate: "biolink:related_to", Text: "related to", Embedding: []float32{0, 0, 1}},
	})
	require.NoError(t, err)
	return st
}

func testClient(t *testing.T, chat *scriptedChat) *Client {
	t.Helper()
	c, err := NewWithOptions(Options{
		Config:  testConfig(),
		Store:   testStore(t),
		Toolkit: ontology.New(nil, nil, nil),
		Embedder: &mapEmbedder{
			vectors: map[string][]float32{
				"is used to manage": {0.9, 0.1, 0},
			},
			fallback: []float32{0, 0, 1},
		},
		Chat: chat,
	})
	require.NoError(t, err)
	return c
}

func TestMapPredicatesEndToEnd(t *testing.T) {
	chat := &scriptedChat{content: `{"mapped_predicate": "treats", "negated": "False"}`}
	c := testClient(t, chat)
	defer c.Close()

	edges := []*types.Edge{{
		Subject:      "metformin",
		Object:       "type 2 diabetes",
		Relationship: "is used to manage",
		Abstract:     "Metformin is widely used to manage type 2 diabetes.",
	}}

	out, err := c.MapPredicates(context.Background(), edges, types.MethodCosine)
	require.NoError(t, err)
	require.Len(t, out, 1)

	edge := out[0]
	require.NotEmpty(t, edge.Candidates, "retrieval candidates should be attached")
	assert.Equal(t, "treats", edge.Candidates[0].MappedPredicate)
	assert.Equal(t, "similarities", edge.RetrievalMethod)

	require.NotNil(t, edge.TopChoice)
	assert.Equal(t, "biolink:treats", edge.TopChoice.Predicate)
	assert.Equal(t, "False", edge.TopChoice.Negated)
	assert.Equal(t, "test-model", edge.TopChoice.Selector)
	assert.Nil(t, edge.PredicateChoices)
}

func TestMapPredicatesChatFailureStillTerminates(t *testing.T) {
	chat := &scriptedChat{err: errors.New("connection refused")}
	c := testClient(t, chat)
	defer c.Close()

	edges := []*types.Edge{{
		Subject:      "metformin",
		Object:       "type 2 diabetes",
		Relationship: "is used to manage",
	}}

	out, err := c.MapPredicates(context.Background(), edges, types.MethodCosine)
	require.NoError(t, err, "per-edge chat failures do not fail the batch")

	require.NotNil(t, out[0].TopChoice)
	assert.Equal(t, "biolink:treats", out[0].TopChoice.Predicate)
	assert.Equal(t, "similarities", out[0].TopChoice.Selector)
}

func TestMapPredicatesRejectsInvalidTriple(t *testing.T) {
	c := testClient(t, &scriptedChat{content: "{}"})
	defer c.Close()

	_, err := c.MapPredicates(context.Background(), []*types.Edge{
		{Subject: "metformin", Object: "", Relationship: "treats"},
	}, types.MethodCosine)
	assert.ErrorIs(t, err, types.ErrEmptyObject)
}

func TestMapPredicatesUnknownMethod(t *testing.T) {
	c := testClient(t, &scriptedChat{content: "{}"})
	defer c.Close()

	_, err := c.MapPredicates(context.Background(), []*types.Edge{
		{Subject: "a", Object: "b", Relationship: "c"},
	}, types.RetrievalMethod("hnsw"))
	assert.ErrorIs(t, err, types.ErrUnknownRetrievalMethod)
}

func TestMapPredicatesReusesSearcher(t *testing.T) {
	chat := &scriptedChat{content: `{"mapped_predicate": "treats", "negated": "False"}`}
	c := testClient(t, chat)
	defer c.Close()

	edge := func() []*types.Edge {
		return []*types.Edge{{Subject: "a", Object: "b", Relationship: "is used to manage"}}
	}

	_, err := c.MapPredicates(context.Background(), edge(), types.MethodCosine)
	require.NoError(t, err)
	_, err = c.MapPredicates(context.Background(), edge(), types.MethodCosine)
	require.NoError(t, err)

	assert.Len(t, c.searchers, 1)
}

func TestNewWithOptionsRequiresClients(t *testing.T) {
	_, err := NewWithOptions(Options{Config: testConfig(), Chat: &scriptedChat{}})
	assert.Error(t, err)

	_, err = NewWithOptions(Options{Config: testConfig(), Embedder: &mapEmbedder{fallback: []float32{1}}})
	assert.Error(t, err)

	_, err = NewWithOptions(Options{Embedder: &mapEmbedder{fallback: []float32{1}}, Chat: &scriptedChat{}})
	assert.Error(t, err)
}

func TestLoadTriplesFromFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "triples.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(
		`[{"subject":"aspirin","object":"headache","relationship":"relieves"}]`), 0o644))

	edges, err := LoadTriplesFromFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "aspirin", edges[0].Subject)

	jsonlPath := filepath.Join(dir, "triples.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(
		`{"subject":"aspirin","object":"headache","relationship":"relieves"}

{"subject":"metformin","object":"type 2 diabetes","relationship":"is used to manage"}
`), 0o644))

	edges, err = LoadTriplesFromFile(jsonlPath)
	require.NoError(t, err)
	require.Len(t, edges, 2, "blank lines are skipped")
	assert.Equal(t, "metformin", edges[1].Subject)

	_, err = LoadTriplesFromFile(filepath.Join(dir, "triples.csv"))
	assert.ErrorIs(t, err, store.ErrUnsupportedFileType)
}
