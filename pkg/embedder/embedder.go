// Package embedder provides text embedding clients for vector
// representations of relationship phrases.
//
// The Client interface has implementations for OpenAI-compatible endpoints
// and local in-process models, plus a caching decorator that avoids
// re-embedding repeated phrases.
package embedder

import "context"

// Client defines the interface for embedding operations.
type Client interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embeddings.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// Config holds embedding client configuration.
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	BatchSize  int
}
