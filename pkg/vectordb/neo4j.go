package vectordb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/types"
)

const neo4jVectorIndexName = "predicate_text_embeddings"

// Neo4jIndex implements Index against a Neo4j vector index.
type Neo4jIndex struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jIndex creates a Neo4j-backed vector index.
func NewNeo4jIndex(ctx context.Context, cfg config.VectorDBConfig) (*Neo4jIndex, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jIndex{
		client:   driver,
		database: database,
	}, nil
}

// Populate replaces the index contents with the corpus entries and ensures
// the vector index exists.
func (n *Neo4jIndex) Populate(ctx context.Context, entries []types.PredicateEntry) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	dimensions := 0
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		if e.Text == "" || len(e.Embedding) == 0 {
			continue
		}
		if dimensions == 0 {
			dimensions = len(e.Embedding)
		}
		embedding := make([]float64, len(e.Embedding))
		for i, v := range e.Embedding {
			embedding[i] = float64(v)
		}
		rows = append(rows, map[string]any{
			"text":      e.Text,
			"predicate": e.Predicate,
			"embedding": embedding,
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (p:PredicateText) DETACH DELETE p", nil); err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
			UNWIND $rows AS row
			CREATE (p:PredicateText {text: row.text, predicate: row.predicate, embedding: row.embedding})
		`, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		return nil, res.Err()
	})
	if err != nil {
		return fmt.Errorf("failed to populate predicate index: %w", err)
	}

	if dimensions == 0 {
		return nil
	}

	createIndex := fmt.Sprintf(`
		CREATE VECTOR INDEX %s IF NOT EXISTS
		FOR (p:PredicateText) ON (p.embedding)
		OPTIONS {indexConfig: {
			`+"`vector.dimensions`"+`: %d,
			`+"`vector.similarity_function`"+`: 'cosine'
		}}
	`, neo4jVectorIndexName, dimensions)

	_, err = session.Run(ctx, createIndex, nil)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// Query returns the closest corpus rows via db.index.vector.queryNodes.
func (n *Neo4jIndex) Query(ctx context.Context, embedding []float32, limit int) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	embeddingF64 := make([]float64, len(embedding))
	for i, v := range embedding {
		embeddingF64[i] = float64(v)
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			CALL db.index.vector.queryNodes($index, $limit, $embedding)
			YIELD node, score
			RETURN node.text AS text, node.predicate AS predicate, score
			ORDER BY score DESC
		`, map[string]any{
			"index":     neo4jVectorIndexName,
			"limit":     limit,
			"embedding": embeddingF64,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("vector index query failed: %w", err)
	}

	records, ok := result.([]*neo4j.Record)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from vector index query", result)
	}

	var hits []types.SearchHit
	for _, record := range records {
		hit := types.SearchHit{}
		if v, found := record.Get("text"); found {
			if s, ok := v.(string); ok {
				hit.Text = s
			}
		}
		if v, found := record.Get("predicate"); found {
			if s, ok := v.(string); ok {
				hit.MappedPredicate = s
			}
		}
		if v, found := record.Get("score"); found {
			if f, ok := v.(float64); ok {
				hit.Score = f
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Close releases the driver.
func (n *Neo4jIndex) Close() error {
	return n.client.Close(context.Background())
}
