package types

import (
	"errors"
	"strings"
)

// EmbeddingDim is the expected length of predicate and relationship embeddings.
const EmbeddingDim = 768

// Validation errors for user-supplied triples.
var (
	ErrEmptySubject      = errors.New("subject cannot be empty")
	ErrEmptyObject       = errors.New("object cannot be empty")
	ErrEmptyRelationship = errors.New("relationship cannot be empty")
)

// PredicateEntry is one row of the predicate corpus: a Biolink predicate id,
// a natural-language description or synonym for it, and the precomputed
// embedding of that text. Entries are immutable once loaded.
type PredicateEntry struct {
	Predicate string    `json:"predicate"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// SearchHit is a single similarity-search result. Score is cosine similarity
// in [0,1]; hits are ordered descending by score.
type SearchHit struct {
	Text            string  `json:"text"`
	MappedPredicate string  `json:"mapped_predicate"`
	Score           float64 `json:"score"`
}

// Candidate is one deduplicated, ontology-expanded retrieval candidate
// attached to an edge. MappedPredicate is the human-readable
// (space-separated) predicate name.
type Candidate struct {
	MappedPredicate string  `json:"mapped_predicate"`
	Score           float64 `json:"score"`
}

// TopChoice is the terminal result for an edge. Predicate is the qualified,
// ontology-expanded Biolink id, or the raw fallback predicate. Negated is the
// string "True" or "False". Selector records which subsystem produced the
// answer: the chat model name, or one of "vectorDB", "nearest_neighbors",
// "similarities" when retrieval fallback was used.
type TopChoice struct {
	Predicate                string `json:"predicate"`
	ObjectAspectQualifier    string `json:"object_aspect_qualifier"`
	ObjectDirectionQualifier string `json:"object_direction_qualifier"`
	Negated                  string `json:"negated"`
	Selector                 string `json:"selector"`
}

// Edge is one subject-object relationship flowing through the pipeline. It is
// created from user input and mutated in place by each stage: the embedding
// is attached lazily, then candidates, then the working predicate_choices
// map, and finally TopChoice. After the reranker writes TopChoice the edge is
// never mutated again.
type Edge struct {
	Subject      string `json:"subject"`
	Object       string `json:"object"`
	Relationship string `json:"relationship"`
	Abstract     string `json:"abstract"`

	// RelationshipEmbedding is computed on first use and cached on the edge.
	RelationshipEmbedding []float32 `json:"relationship_embedding,omitempty"`

	// Candidates is ordered descending by score.
	Candidates []Candidate `json:"Top_n_candidates,omitempty"`

	// RetrievalMethod is the label of the backend that produced Candidates.
	RetrievalMethod string `json:"Top_n_retrieval_method,omitempty"`

	// PredicateChoices maps candidate predicates to their descriptions. It is
	// built only for reranking and removed before the edge is returned.
	PredicateChoices map[string]string `json:"predicate_choices,omitempty"`

	TopChoice *TopChoice `json:"top_choice,omitempty"`
}

// Validate checks the fields a triple must carry before entering the pipeline.
func (e *Edge) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(e.Object) == "" {
		return ErrEmptyObject
	}
	if strings.TrimSpace(e.Relationship) == "" {
		return ErrEmptyRelationship
	}
	return nil
}

// TopCandidate returns the highest-scoring candidate, if any.
func (e *Edge) TopCandidate() (Candidate, bool) {
	if len(e.Candidates) == 0 {
		return Candidate{}, false
	}
	return e.Candidates[0], true
}

// RetrievalMethod selects one of the three search backends.
type RetrievalMethod string

const (
	// MethodCosine is the exact brute-force cosine backend (default).
	MethodCosine RetrievalMethod = "cosine_similarities"
	// MethodNearestNeighbor is the library nearest-neighbor backend.
	MethodNearestNeighbor RetrievalMethod = "nearest_neighbor"
	// MethodVectorDB delegates to an external vector index.
	MethodVectorDB RetrievalMethod = "vectordb"
)

// ErrUnknownRetrievalMethod is returned for an unrecognized method value.
var ErrUnknownRetrievalMethod = errors.New("unknown retrieval method")

// ParseRetrievalMethod maps the wire value to a RetrievalMethod. An empty
// value selects the cosine default.
func ParseRetrievalMethod(s string) (RetrievalMethod, error) {
	switch s {
	case "", string(MethodCosine):
		return MethodCosine, nil
	case string(MethodNearestNeighbor):
		return MethodNearestNeighbor, nil
	case string(MethodVectorDB):
		return MethodVectorDB, nil
	}
	return "", ErrUnknownRetrievalMethod
}

// BatchLabel is the retrieval-method tag attached to edges sent for
// reranking.
func (m RetrievalMethod) BatchLabel() string {
	switch m {
	case MethodVectorDB:
		return "vectorDb"
	case MethodNearestNeighbor:
		return "nearest_neighbors"
	default:
		return "similarities"
	}
}

// Selector is the provenance tag recorded on a TopChoice produced by
// retrieval fallback.
func (m RetrievalMethod) Selector() string {
	switch m {
	case MethodVectorDB:
		return "vectorDB"
	case MethodNearestNeighbor:
		return "nearest_neighbors"
	default:
		return "similarities"
	}
}
