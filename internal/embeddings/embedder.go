// Package embeddings maps text to fixed-length vectors via a local
// model server. Embeddings are deterministic for identical input, and
// callers must treat a failed embedding as a hard error: substituting a
// zero vector would silently corrupt similarity rankings.
package embeddings

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding backend cannot be reached or
// cannot serve the configured model. Ingestion and queries abort on it
// rather than degrading.
var ErrUnavailable = errors.New("embedding model unavailable")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts, preserving
	// input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}
