// Package handlers implements the HTTP handlers for the mapping API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/predmap/pkg/server/dto"
	"github.com/soundprediction/predmap/pkg/types"
)

// Mapper runs the predicate mapping pipeline over a batch of triples.
type Mapper interface {
	MapPredicates(ctx context.Context, edges []*types.Edge, method types.RetrievalMethod) ([]*types.Edge, error)
}

// QueryHandler handles predicate mapping requests.
type QueryHandler struct {
	mapper Mapper
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(m Mapper) *QueryHandler {
	return &QueryHandler{mapper: m}
}

// Query handles POST /query/. The body is a JSON array of triples; unknown
// fields are rejected. The optional retrieval_method query parameter selects
// the search backend and defaults to cosine similarity.
func (h *QueryHandler) Query(c *gin.Context) {
	method, err := types.ParseRetrievalMethod(c.Query("retrieval_method"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "unknown retrieval_method: " + c.Query("retrieval_method"),
		})
		return
	}

	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	var triples []dto.Triple
	if err := decoder.Decode(&triples); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if len(triples) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "triples array cannot be empty",
		})
		return
	}

	edges := make([]*types.Edge, len(triples))
	for i := range triples {
		if err := triples[i].Validate(); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
		edges[i] = triples[i].ToEdge()
	}

	mapped, err := h.mapper.MapPredicates(c.Request.Context(), edges, method)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "mapping_failed",
			Message: err.Error(),
		})
		return
	}

	results := make([]dto.MappedTriple, len(mapped))
	for i, e := range mapped {
		results[i] = dto.FromEdge(e)
	}
	c.JSON(http.StatusOK, dto.QueryResponse{Results: results})
}
