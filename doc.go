// Package predmap maps free-text biomedical relationship phrases to
// canonical Biolink predicates.
//
// The pipeline embeds each relationship phrase, retrieves the closest
// predicate phrases from a precomputed corpus under one of three
// interchangeable backends (exact cosine, KD-tree nearest neighbor, or an
// external vector database), expands candidates with their ontology
// inverses, then asks a chat model to pick the best candidate. Responses are
// parsed defensively; when the model cannot answer, the top retrieval
// candidate is used and the provenance recorded on the result.
package predmap
