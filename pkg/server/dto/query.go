// Package dto defines the wire types for the mapping API.
package dto

import (
	"errors"
	"strconv"
	"strings"

	"github.com/soundprediction/predmap/pkg/types"
)

// Triple is one relationship to map, as submitted by the caller.
type Triple struct {
	Subject      string `json:"subject" binding:"required"`
	Object       string `json:"object" binding:"required"`
	Relationship string `json:"relationship" binding:"required"`
	Abstract     string `json:"abstract"`
}

// Validate performs validation on Triple.
func (t *Triple) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return errors.New("subject cannot be empty")
	}
	if strings.TrimSpace(t.Object) == "" {
		return errors.New("object cannot be empty")
	}
	if strings.TrimSpace(t.Relationship) == "" {
		return errors.New("relationship cannot be empty")
	}
	return nil
}

// ToEdge converts the request triple to a pipeline edge.
func (t *Triple) ToEdge() *types.Edge {
	return &types.Edge{
		Subject:      t.Subject,
		Object:       t.Object,
		Relationship: t.Relationship,
		Abstract:     t.Abstract,
	}
}

// Candidate is one retrieval candidate in a response.
type Candidate struct {
	MappedPredicate string  `json:"mapped_predicate"`
	Score           float64 `json:"score"`
}

// TopChoice is the selected predicate in a response.
type TopChoice struct {
	Predicate                string `json:"predicate"`
	ObjectAspectQualifier    string `json:"object_aspect_qualifier"`
	ObjectDirectionQualifier string `json:"object_direction_qualifier"`
	Negated                  string `json:"negated"`
	Selector                 string `json:"selector"`
}

// MappedTriple is one fully mapped result. Candidates are keyed by their
// zero-based rank as a string, matching the legacy wire format.
type MappedTriple struct {
	Subject         string               `json:"subject"`
	Object          string               `json:"object"`
	Relationship    string               `json:"relationship"`
	Abstract        string               `json:"abstract"`
	Candidates      map[string]Candidate `json:"Top_n_candidates"`
	RetrievalMethod string               `json:"Top_n_retrieval_method"`
	TopChoice       *TopChoice           `json:"top_choice"`
}

// QueryResponse wraps the mapped triples.
type QueryResponse struct {
	Results []MappedTriple `json:"results"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FromEdge converts a pipeline edge to its response form.
func FromEdge(e *types.Edge) MappedTriple {
	out := MappedTriple{
		Subject:         e.Subject,
		Object:          e.Object,
		Relationship:    e.Relationship,
		Abstract:        e.Abstract,
		Candidates:      make(map[string]Candidate, len(e.Candidates)),
		RetrievalMethod: e.RetrievalMethod,
	}
	for i, c := range e.Candidates {
		out.Candidates[strconv.Itoa(i)] = Candidate{
			MappedPredicate: c.MappedPredicate,
			Score:           c.Score,
		}
	}
	if e.TopChoice != nil {
		out.TopChoice = &TopChoice{
			Predicate:                e.TopChoice.Predicate,
			ObjectAspectQualifier:    e.TopChoice.ObjectAspectQualifier,
			ObjectDirectionQualifier: e.TopChoice.ObjectDirectionQualifier,
			Negated:                  e.TopChoice.Negated,
			Selector:                 e.TopChoice.Selector,
		}
	}
	return out
}
