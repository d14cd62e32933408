package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory, insertion-ordered vector index with
// brute-force cosine search and a durable snapshot file. It is the
// default backend. A single RWMutex gives every search a consistent
// view: a concurrent removal is observed either entirely or not at all.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	path       string
	entries    []Chunk
}

// NewMemoryIndex creates an empty index of fixed dimension whose
// snapshot lives at path.
func NewMemoryIndex(dimensions int, path string) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vectordb: dimensions must be positive, got %d", dimensions)
	}
	return &MemoryIndex{
		dimensions: dimensions,
		path:       path,
	}, nil
}

// Dimensions returns the fixed embedding dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Count returns the number of chunks in the index.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Add appends chunks in the given order. Every chunk's embedding must
// match the index dimension; nothing is inserted if any chunk fails
// validation.
func (m *MemoryIndex) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Embedding) != m.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), m.dimensions)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, chunks...)
	return nil
}

// Search scores every chunk against the query and returns the top k by
// cosine similarity. Results are sorted by non-increasing score with
// exact ties resolved by insertion order; k is clamped to the index
// size.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, len(m.entries))
	for i, c := range m.entries {
		results[i] = SearchResult{Chunk: c, Score: cosineSimilarity(query, c.Embedding)}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// RemoveDocument removes every chunk belonging to document and returns
// the removed count. Removing an unknown document is a no-op.
func (m *MemoryIndex) RemoveDocument(ctx context.Context, document string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	removed := 0
	for _, c := range m.entries {
		if c.Document == document {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	// Zero the tail so removed chunks don't pin their embeddings.
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = Chunk{}
	}
	m.entries = kept
	return removed, nil
}

// Persist writes the current state to the snapshot file atomically:
// the snapshot is marshalled under a read lock, written to a temp file
// in the same directory, synced, then renamed over the previous one.
func (m *MemoryIndex) Persist(ctx context.Context) error {
	m.mu.RLock()
	data, err := marshalSnapshot(m.dimensions, m.entries)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := writeFileAtomic(m.path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load replaces the index contents with the persisted snapshot. A
// missing snapshot leaves the index empty and returns nil. A snapshot
// failing validation leaves the index empty and returns an error
// wrapping ErrCorrupt; the index is never partially loaded.
func (m *MemoryIndex) Load(ctx context.Context) error {
	entries, err := readSnapshot(m.path, m.dimensions)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.entries = nil
		return err
	}
	m.entries = entries
	return nil
}
