// Package vectordb stores chunk embeddings and serves top-k cosine
// similarity search. The memory backend is the reference
// implementation: insertion-ordered, brute-force, with a checksummed
// snapshot written atomically to disk. A chromem-go backend is
// available as an alternative.
package vectordb

import (
	"context"
	"errors"
	"math"
)

// ErrCorrupt indicates a persisted snapshot failed validation. The
// index resets to empty when this is returned; callers log the
// condition and continue rather than refusing to start.
var ErrCorrupt = errors.New("vector index snapshot corrupt")

// ErrDimensionMismatch indicates a vector whose length differs from
// the index's fixed dimension. Mixing embedders of different
// dimensions corrupts similarity rankings, so this is always rejected.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Chunk is the unit of retrieval: a bounded slice of one document's
// extracted text together with its embedding. Immutable once stored.
type Chunk struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Page     int    `json:"page"`
	Seq      int    `json:"seq"`
	Text     string `json:"text"`

	// Embedding is kept out of the JSON chunk record; snapshots store
	// all vectors in one binary blob.
	Embedding []float32 `json:"-"`
}

// SearchResult is a scored chunk. Score is cosine similarity in [-1, 1].
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// VectorStore defines the interface for storing and searching chunks
// by embedding.
type VectorStore interface {
	// Add appends chunks to the index in the given order.
	Add(ctx context.Context, chunks []Chunk) error

	// Search returns the k chunks most similar to the query vector,
	// ordered by non-increasing score. Exact ties resolve by insertion
	// order (earlier wins). k is clamped to the index size.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// RemoveDocument removes every chunk of the named document and
	// returns how many were removed. Unknown names remove nothing.
	RemoveDocument(ctx context.Context, document string) (int, error)

	// Persist writes a durable snapshot. A crash mid-persist never
	// corrupts the previous snapshot.
	Persist(ctx context.Context) error

	// Load restores the snapshot. A missing snapshot yields an empty
	// index and no error; a corrupt one yields an empty index and an
	// error wrapping ErrCorrupt.
	Load(ctx context.Context) error

	// Count returns the number of chunks currently in the index.
	Count() int

	// Dimensions returns the fixed embedding dimension.
	Dimensions() int
}

// cosineSimilarity computes the normalized dot product of two vectors.
// Either vector having zero magnitude yields 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
