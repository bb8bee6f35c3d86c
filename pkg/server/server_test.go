package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMapper struct{}

func (noopMapper) MapPredicates(ctx context.Context, edges []*types.Edge, method types.RetrievalMethod) ([]*types.Edge, error) {
	return edges, nil
}

type fixedReadiness bool

func (f fixedReadiness) Populated() bool { return bool(f) }

func testServer(ready bool) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080, Mode: "test"},
	}
	s := New(cfg, noopMapper{}, fixedReadiness(ready))
	s.Setup()
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)

	w := httptest.NewRecorder()
	testServer(true).Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	testServer(false).Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(true)

	req := httptest.NewRequest(http.MethodOptions, "/query/", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAssigned(t *testing.T) {
	s := testServer(true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestQueryRouteRegisteredBothForms(t *testing.T) {
	s := testServer(true)

	for _, target := range []string{"/query", "/query/"} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		require.NotEqual(t, http.StatusNotFound, w.Code, target)
	}
}
