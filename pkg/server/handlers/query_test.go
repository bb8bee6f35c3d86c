package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/predmap/pkg/server/dto"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMapper records the batch it received and writes a canned TopChoice.
type fakeMapper struct {
	method types.RetrievalMethod
	edges  []*types.Edge
	err    error
}

func (f *fakeMapper) MapPredicates(ctx context.Context, edges []*types.Edge, method types.RetrievalMethod) ([]*types.Edge, error) {
	f.method = method
	f.edges = edges
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range edges {
		e.Candidates = []types.Candidate{
			{MappedPredicate: "treats", Score: 0.95},
			{MappedPredicate: "related to", Score: 0.61},
		}
		e.RetrievalMethod = method.BatchLabel()
		e.TopChoice = &types.TopChoice{
			Predicate: "biolink:treats",
			Negated:   "False",
			Selector:  "test-model",
		}
	}
	return edges, nil
}

func queryRouter(m Mapper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewQueryHandler(m)
	r.POST("/query/", h.Query)
	return r
}

func postQuery(t *testing.T, router *gin.Engine, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validBody = `[{"subject":"metformin","object":"type 2 diabetes","relationship":"is used to manage","abstract":"Metformin manages type 2 diabetes."}]`

func TestQueryReturnsMappedResults(t *testing.T) {
	mapper := &fakeMapper{}
	w := postQuery(t, queryRouter(mapper), "/query/", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.MethodCosine, mapper.method, "default method is cosine")

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.Equal(t, "metformin", result.Subject)
	require.NotNil(t, result.TopChoice)
	assert.Equal(t, "biolink:treats", result.TopChoice.Predicate)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "treats", result.Candidates["0"].MappedPredicate, "candidates are keyed by rank")
	assert.Equal(t, "related to", result.Candidates["1"].MappedPredicate)
}

func TestQuerySelectsRetrievalMethod(t *testing.T) {
	mapper := &fakeMapper{}
	w := postQuery(t, queryRouter(mapper), "/query/?retrieval_method=nearest_neighbor", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.MethodNearestNeighbor, mapper.method)
}

func TestQueryRejectsUnknownMethod(t *testing.T) {
	w := postQuery(t, queryRouter(&fakeMapper{}), "/query/?retrieval_method=hnsw", validBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryRejectsUnknownFields(t *testing.T) {
	body := `[{"subject":"a","object":"b","relationship":"c","extra_field":"nope"}]`
	w := postQuery(t, queryRouter(&fakeMapper{}), "/query/", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryRejectsMalformedAndEmptyBodies(t *testing.T) {
	router := queryRouter(&fakeMapper{})

	w := postQuery(t, router, "/query/", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postQuery(t, router, "/query/", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postQuery(t, router, "/query/", `[{"subject":"","object":"b","relationship":"c"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryMapperErrorReturns500WithMessage(t *testing.T) {
	mapper := &fakeMapper{err: errors.New("predicate store not populated")}
	w := postQuery(t, queryRouter(mapper), "/query/", validBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "not populated")
}
