package embedder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 2048

// CachedEmbedder wraps a Client with an in-memory LRU cache and an optional
// on-disk store. Relationship phrases repeat heavily across knowledge graph
// edges, so caching saves most embedding calls on real workloads.
type CachedEmbedder struct {
	upstream Client
	memory   *lru.Cache[string, []float32]
	db       *badger.DB
}

// NewCachedEmbedder creates a caching decorator around upstream. cachePath
// names a badger directory for persistence across restarts; empty disables
// the on-disk layer.
func NewCachedEmbedder(upstream Client, cacheSize int, cachePath string) (*CachedEmbedder, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	memory, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	var db *badger.DB
	if cachePath != "" {
		opts := badger.DefaultOptions(cachePath).WithLogger(nil)
		db, err = badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache at %s: %w", cachePath, err)
		}
	}

	return &CachedEmbedder{
		upstream: upstream,
		memory:   memory,
		db:       db,
	}, nil
}

// Embed returns embeddings for texts, fetching only cache misses from the
// upstream client. Result order matches input order.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		if v, ok := c.lookup(text); ok {
			results[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) > 0 {
		fetched, err := c.upstream.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fetched) != len(missTexts) {
			return nil, fmt.Errorf("upstream returned %d embeddings for %d texts", len(fetched), len(missTexts))
		}
		for j, v := range fetched {
			results[missIndexes[j]] = v
			c.store(missTexts[j], v)
		}
	}

	return results, nil
}

// EmbedSingle returns the embedding for text, consulting the caches first.
func (c *CachedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(text); ok {
		return v, nil
	}

	v, err := c.upstream.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, v)
	return v, nil
}

// Dimensions returns the upstream embedding dimensions.
func (c *CachedEmbedder) Dimensions() int {
	return c.upstream.Dimensions()
}

// Close closes the on-disk store and the upstream client.
func (c *CachedEmbedder) Close() error {
	var err error
	if c.db != nil {
		err = c.db.Close()
	}
	if cerr := c.upstream.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (c *CachedEmbedder) lookup(text string) ([]float32, bool) {
	if v, ok := c.memory.Get(text); ok {
		return v, true
	}

	if c.db == nil {
		return nil, false
	}

	var v []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false
		}
		return nil, false
	}

	c.memory.Add(text, v)
	return v, true
}

func (c *CachedEmbedder) store(text string, v []float32) {
	c.memory.Add(text, v)

	if c.db == nil {
		return
	}
	// Best effort; a failed disk write only costs a future re-embed.
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(text), encodeVector(v))
	})
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
