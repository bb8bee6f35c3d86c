//go:build !cgo

package vectordb

import (
	"context"
	"errors"

	"github.com/soundprediction/predmap/pkg/types"
)

// ErrCGORequired indicates the Ladybug backend needs cgo enabled.
var ErrCGORequired = errors.New("ladybug vector index requires cgo; rebuild with CGO_ENABLED=1 or configure the neo4j driver")

// LadybugIndex is unavailable without cgo.
type LadybugIndex struct{}

// NewLadybugIndex always fails when built without cgo.
func NewLadybugIndex(dbPath string) (*LadybugIndex, error) {
	return nil, ErrCGORequired
}

// Populate implements Index.
func (l *LadybugIndex) Populate(ctx context.Context, entries []types.PredicateEntry) error {
	return ErrCGORequired
}

// Query implements Index.
func (l *LadybugIndex) Query(ctx context.Context, embedding []float32, limit int) ([]types.SearchHit, error) {
	return nil, ErrCGORequired
}

// Close implements Index.
func (l *LadybugIndex) Close() error {
	return nil
}
