package predmap

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/predmap/pkg/alert"
	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/embedder"
	"github.com/soundprediction/predmap/pkg/llm"
	"github.com/soundprediction/predmap/pkg/ontology"
	"github.com/soundprediction/predmap/pkg/rerank"
	"github.com/soundprediction/predmap/pkg/search"
	"github.com/soundprediction/predmap/pkg/store"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/vectordb"
)

// Client is the top-level predicate mapping pipeline.
type Client struct {
	cfg      *config.Config
	store    *store.Store
	toolkit  *ontology.Toolkit
	embedder embedder.Client
	chat     llm.Client

	aggregator *search.Aggregator
	reranker   *rerank.Reranker

	mu        sync.Mutex
	index     vectordb.Index
	searchers map[types.RetrievalMethod]search.Searcher

	cancelRefresh context.CancelFunc
}

// Options carries pre-built dependencies for NewWithOptions. Any nil field
// other than Config falls back to a sensible default.
type Options struct {
	Config   *config.Config
	Store    *store.Store
	Toolkit  *ontology.Toolkit
	Embedder embedder.Client
	Chat     llm.Client
	Index    vectordb.Index
}

// New builds a fully wired Client from configuration: embedding client with
// caching, chat client with retries (and circuit breaking when enabled),
// ontology toolkit, and the predicate corpus loaded from disk.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	chat, err := buildChat(cfg)
	if err != nil {
		emb.Close()
		return nil, err
	}

	toolkit, err := ontology.Load(ontology.Files{
		DescriptionFile:        cfg.Store.DescriptionFile,
		InverseFile:            cfg.Store.InverseFile,
		QualifiedPredicateFile: cfg.Store.QualifiedPredicateFile,
	})
	if err != nil {
		emb.Close()
		chat.Close()
		return nil, err
	}

	st := store.New()
	if err := st.PopulateFromFile(cfg.Store.CorpusFile); err != nil {
		emb.Close()
		chat.Close()
		return nil, err
	}

	c, err := NewWithOptions(Options{
		Config:   cfg,
		Store:    st,
		Toolkit:  toolkit,
		Embedder: emb,
		Chat:     chat,
	})
	if err != nil {
		return nil, err
	}

	if interval := cfg.Store.RefreshIntervalSeconds; interval > 0 {
		refreshCtx, cancel := context.WithCancel(context.Background())
		c.cancelRefresh = cancel
		st.StartRefresh(refreshCtx, cfg.Store.CorpusFile, time.Duration(interval)*time.Second)
	}

	return c, nil
}

// NewWithOptions builds a Client from pre-constructed dependencies.
func NewWithOptions(opts Options) (*Client, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedding client is required")
	}
	if opts.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Toolkit == nil {
		opts.Toolkit = ontology.New(nil, nil, nil)
	}

	cfg := opts.Config
	return &Client{
		cfg:      cfg,
		store:    opts.Store,
		toolkit:  opts.Toolkit,
		embedder: opts.Embedder,
		chat:     opts.Chat,
		index:    opts.Index,
		aggregator: search.NewAggregator(opts.Embedder, opts.Toolkit,
			cfg.Rerank.NumResults, cfg.Rerank.Concurrency),
		reranker: rerank.NewReranker(opts.Chat, opts.Toolkit,
			cfg.LLM.Model, cfg.Rerank.Concurrency),
		searchers: make(map[types.RetrievalMethod]search.Searcher),
	}, nil
}

// MapPredicates runs the full pipeline over triples: embed, retrieve,
// aggregate, rerank. Every returned edge carries a TopChoice; per-edge
// failures degrade that edge rather than failing the batch. An error is
// returned only for systemic problems such as an unpopulated corpus or an
// unavailable backend.
func (c *Client) MapPredicates(ctx context.Context, edges []*types.Edge, method types.RetrievalMethod) ([]*types.Edge, error) {
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid triple %q -> %q: %w", e.Subject, e.Object, err)
		}
	}

	searcher, err := c.searcherFor(ctx, method)
	if err != nil {
		return nil, err
	}

	slog.Info("Vector searching relationships", "count", len(edges), "method", string(method))
	c.aggregator.AttachCandidates(ctx, searcher, edges)

	slog.Info("Reranking and selecting top predicate choice", "count", len(edges))
	c.reranker.Rerank(ctx, edges, method)

	return edges, nil
}

// searcherFor returns the cached searcher for a method, creating it on first
// use. The vectordb backend opens and populates the external index lazily so
// cosine-only deployments never touch it.
func (c *Client) searcherFor(ctx context.Context, method types.RetrievalMethod) (search.Searcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.searchers[method]; ok {
		return s, nil
	}

	var index vectordb.Index
	if method == types.MethodVectorDB {
		if c.index == nil {
			idx, err := vectordb.Open(ctx, c.cfg.VectorDB)
			if err != nil {
				return nil, fmt.Errorf("failed to open vector index: %w", err)
			}
			snap, err := c.store.Snapshot()
			if err != nil {
				idx.Close()
				return nil, err
			}
			if err := idx.Populate(ctx, snap.Entries); err != nil {
				idx.Close()
				return nil, fmt.Errorf("failed to populate vector index: %w", err)
			}
			c.index = idx
		}
		index = c.index
	}

	s, err := search.New(method, c.store, index)
	if err != nil {
		return nil, err
	}
	c.searchers[method] = s
	return s, nil
}

// Populated reports whether the predicate corpus has been loaded.
func (c *Client) Populated() bool {
	return c.store.Populated()
}

// Close releases all clients and any open vector index.
func (c *Client) Close() error {
	if c.cancelRefresh != nil {
		c.cancelRefresh()
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.mu.Lock()
	if c.index != nil {
		record(c.index.Close())
		c.index = nil
	}
	c.mu.Unlock()

	record(c.embedder.Close())
	record(c.chat.Close())
	return firstErr
}

// LoadTriplesFromFile reads triples from a .json array or .jsonl file.
func LoadTriplesFromFile(path string) ([]*types.Edge, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read triples file: %w", err)
		}
		var edges []*types.Edge
		if err := json.Unmarshal(data, &edges); err != nil {
			return nil, fmt.Errorf("failed to parse triples file %s: %w", path, err)
		}
		return edges, nil
	case ".jsonl":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open triples file: %w", err)
		}
		defer f.Close()

		var edges []*types.Edge
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := strings.TrimSpace(scanner.Text())
			if raw == "" {
				continue
			}
			var e types.Edge
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				return nil, fmt.Errorf("failed to parse triple at line %d of %s: %w", line, path, err)
			}
			edges = append(edges, &e)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan triples file %s: %w", path, err)
		}
		return edges, nil
	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnsupportedFileType, path)
	}
}

func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	var base embedder.Client
	switch cfg.Embedding.Provider {
	case "local":
		local, err := embedder.NewLocalEmbedder(embedder.Config{
			Model: cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create local embedder: %w", err)
		}
		base = local
	default:
		base = embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embedder.Config{
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
	}

	cached, err := embedder.NewCachedEmbedder(base, cfg.Embedding.CacheSize, cfg.Embedding.CachePath)
	if err != nil {
		base.Close()
		return nil, err
	}
	return cached, nil
}

func buildChat(cfg *config.Config) (llm.Client, error) {
	base, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	var client llm.Client = llm.NewRetryClient(base, &llm.RetryConfig{
		MaxRetries: cfg.LLM.MaxRetries,
	})

	if cfg.CircuitBreaker.Enabled {
		var alerter alert.Alerter = &alert.NoOpAlerter{}
		if cfg.Alert.Enabled {
			alerter = alert.NewEmailAlerter(cfg.Alert)
		}
		client = llm.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, "chat")
	}

	return client, nil
}
