//go:build cgo

package vectordb

import (
	"context"
	"fmt"
	"sync"

	ladybug "github.com/LadybugDB/go-ladybug"
	"github.com/google/uuid"
	"github.com/soundprediction/predmap/pkg/types"
)

// Ladybug requires an explicit schema. Each corpus row becomes one
// PredicateText node carrying the phrase, its mapped predicate, and the
// precomputed embedding.
const ladybugSchemaQuery = `
    CREATE NODE TABLE IF NOT EXISTS PredicateText (
        uuid STRING PRIMARY KEY,
        text STRING,
        predicate STRING,
        embedding FLOAT[]
    );
`

// LadybugIndex implements Index on an embedded Ladybug database.
type LadybugIndex struct {
	db   *ladybug.Database
	conn *ladybug.Connection
	// The ladybug C++ library is not thread-safe; serialize all access.
	mu sync.Mutex
}

// NewLadybugIndex opens (or creates) a Ladybug database at dbPath.
// ":memory:" gives a process-local index rebuilt on every start.
func NewLadybugIndex(dbPath string) (*LadybugIndex, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    1024 * 1024 * 1024,
		MaxNumThreads:     1,
		EnableCompression: true,
		ReadOnly:          false,
		MaxDbSize:         1 << 43,
	}

	db, err := ladybug.OpenDatabase(dbPath, systemConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open ladybug database: %w", err)
	}

	conn, err := ladybug.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	if _, err := conn.Query(ladybugSchemaQuery); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create ladybug schema: %w", err)
	}

	return &LadybugIndex{db: db, conn: conn}, nil
}

// Populate replaces the index contents with the corpus entries.
func (l *LadybugIndex) Populate(ctx context.Context, entries []types.PredicateEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.conn.Query("MATCH (p:PredicateText) DELETE p;"); err != nil {
		return fmt.Errorf("failed to clear predicate index: %w", err)
	}

	stmt, err := l.conn.Prepare(`
		CREATE (p:PredicateText {
			uuid: $uuid,
			text: $text,
			predicate: $predicate,
			embedding: $embedding
		})
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare predicate insert: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Text == "" || len(e.Embedding) == 0 {
			continue
		}

		embedding := make([]float64, len(e.Embedding))
		for i, v := range e.Embedding {
			embedding[i] = float64(v)
		}

		params := map[string]any{
			"uuid":      uuid.New().String(),
			"text":      e.Text,
			"predicate": e.Predicate,
			"embedding": embedding,
		}
		result, err := l.conn.Execute(stmt, params)
		if err != nil {
			return fmt.Errorf("failed to insert predicate row: %w", err)
		}
		result.Close()
	}

	return nil
}

// Query returns the closest corpus rows by cosine similarity.
func (l *LadybugIndex) Query(ctx context.Context, embedding []float32, limit int) ([]types.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	embeddingF64 := make([]float64, len(embedding))
	for i, v := range embedding {
		embeddingF64[i] = float64(v)
	}

	query := fmt.Sprintf(`
		MATCH (p:PredicateText)
		WHERE size(p.embedding) > 0
		WITH p, array_cosine_similarity(p.embedding, CAST($search_vector AS FLOAT[%d])) AS score
		WHERE score > 0.0
		RETURN p.text AS text, p.predicate AS predicate, score
		ORDER BY score DESC
		LIMIT $limit
	`, len(embedding))

	stmt, err := l.conn.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare similarity query: %w", err)
	}

	results, err := l.conn.Execute(stmt, map[string]any{
		"search_vector": embeddingF64,
		"limit":         int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity query: %w", err)
	}
	defer results.Close()

	var hits []types.SearchHit
	for results.HasNext() {
		row, err := results.Next()
		if err != nil {
			continue
		}
		values, err := row.GetAsSlice()
		if err != nil || len(values) < 3 {
			continue
		}

		hit := types.SearchHit{}
		if s, ok := values[0].(string); ok {
			hit.Text = s
		}
		if s, ok := values[1].(string); ok {
			hit.MappedPredicate = s
		}
		switch v := values[2].(type) {
		case float64:
			hit.Score = v
		case float32:
			hit.Score = float64(v)
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Close releases the database.
func (l *LadybugIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		l.conn.Close()
	}
	if l.db != nil {
		l.db.Close()
	}
	return nil
}
