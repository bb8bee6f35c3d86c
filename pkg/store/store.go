// Package store holds the predicate corpus: mapped relationship phrases and
// their precomputed embeddings, loaded once per process and shared by every
// search backend.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/predmap/pkg/types"
	"github.com/soundprediction/predmap/pkg/utils"
)

// ErrUnsupportedFileType indicates the corpus file extension is not handled.
var ErrUnsupportedFileType = errors.New("unsupported corpus file type")

// ErrNotPopulated indicates the store has not been populated yet.
var ErrNotPopulated = errors.New("predicate store not populated")

// Snapshot is an immutable view of the corpus. Search backends capture a
// snapshot so a background refresh never changes data mid-query.
type Snapshot struct {
	// Entries are the corpus rows, empty-text rows already filtered out.
	Entries []types.PredicateEntry
	// Texts holds Entries[i].Text, aligned by index.
	Texts []string
	// Predicates holds Entries[i].Predicate, aligned by index.
	Predicates []string
	// Normalized holds unit-length copies of the embeddings, aligned by
	// index. Rows whose embedding was zero or absent are nil.
	Normalized [][]float32
}

// Len returns the number of corpus rows.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Store is a thread-safe container for the predicate corpus.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Populate replaces the corpus atomically. Rows with empty text are dropped.
// Calling Populate again with the same entries is harmless; readers always
// see either the old snapshot or the new one, never a mix.
func (s *Store) Populate(entries []types.PredicateEntry) error {
	snap := &Snapshot{
		Entries:    make([]types.PredicateEntry, 0, len(entries)),
		Texts:      make([]string, 0, len(entries)),
		Predicates: make([]string, 0, len(entries)),
		Normalized: make([][]float32, 0, len(entries)),
	}

	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		snap.Entries = append(snap.Entries, e)
		snap.Texts = append(snap.Texts, e.Text)
		snap.Predicates = append(snap.Predicates, e.Predicate)
		snap.Normalized = append(snap.Normalized, utils.Normalize(e.Embedding))
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	slog.Info("Populated predicate store", "entries", snap.Len(), "dropped", len(entries)-snap.Len())
	return nil
}

// Snapshot returns the current corpus view, or ErrNotPopulated.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap == nil {
		return nil, ErrNotPopulated
	}
	return snap, nil
}

// Populated reports whether the store holds a corpus.
func (s *Store) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

// LoadEntriesFromFile reads corpus entries from a .json array or a .jsonl
// file with one entry per line.
func LoadEntriesFromFile(path string) ([]types.PredicateEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".jsonl":
		return loadJSONL(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
	}
}

func loadJSON(path string) ([]types.PredicateEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var entries []types.PredicateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}
	return entries, nil
}

func loadJSONL(path string) ([]types.PredicateEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var entries []types.PredicateEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var e types.PredicateEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to parse corpus line %d of %s: %w", line, path, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan corpus file %s: %w", path, err)
	}
	return entries, nil
}

// PopulateFromFile loads entries from path and replaces the corpus.
func (s *Store) PopulateFromFile(path string) error {
	entries, err := LoadEntriesFromFile(path)
	if err != nil {
		return err
	}
	return s.Populate(entries)
}

// StartRefresh reloads the corpus from path every interval until ctx is
// cancelled. A failed reload keeps the previous snapshot.
func (s *Store) StartRefresh(ctx context.Context, path string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.PopulateFromFile(path); err != nil {
					slog.Error("Corpus refresh failed", "path", path, "error", err)
				}
			}
		}
	}()
}
