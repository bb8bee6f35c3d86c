// Package vectordb provides external vector index backends for predicate
// retrieval. Two implementations exist: an embedded Ladybug database queried
// with array_cosine_similarity, and a Neo4j vector index.
package vectordb

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/types"
)

// ErrUnknownDriver indicates the configured vectordb driver is not handled.
var ErrUnknownDriver = errors.New("unknown vectordb driver")

// Index is a populated vector index over the predicate corpus.
type Index interface {
	// Populate replaces the index contents with the given corpus entries.
	Populate(ctx context.Context, entries []types.PredicateEntry) error

	// Query returns up to limit hits ordered descending by cosine score.
	Query(ctx context.Context, embedding []float32, limit int) ([]types.SearchHit, error)

	// Close releases the underlying database resources.
	Close() error
}

// Open creates an Index from configuration.
func Open(ctx context.Context, cfg config.VectorDBConfig) (Index, error) {
	switch cfg.Driver {
	case "", "ladybug":
		return NewLadybugIndex(cfg.URI)
	case "neo4j":
		return NewNeo4jIndex(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
