package cmd

import (
	"context"
	"fmt"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/db"
	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `docqa init` to regenerate it", err)
	}
	return cfg, nil
}

// newVectorStore creates the configured vector index backend.
func newVectorStore(cfg *config.Config) (vectordb.VectorStore, error) {
	switch cfg.Index.Backend {
	case config.IndexChromem:
		return vectordb.NewChromemStore(cfg.Embedding.Dimensions, cfg.ChromemPath())
	default:
		return vectordb.NewMemoryIndex(cfg.Embedding.Dimensions, cfg.IndexPath())
	}
}

// buildStore assembles the document store over the configured database,
// vector index and embedding backend, loading the index snapshot. The
// returned cleanup closes the database.
func buildStore(ctx context.Context, cfg *config.Config) (*docstore.Store, func(), error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	index, err := newVectorStore(cfg)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("creating vector index: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embedding)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	splitter, err := chunker.New(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("creating chunker: %w", err)
	}

	store, err := docstore.Open(ctx, database, index, embedder, splitter)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	cleanup := func() { database.Close() }
	return store, cleanup, nil
}

// newEngine builds the question-answering engine over an opened store,
// reusing its index and embedder so queries see the same vector space
// that ingestion wrote.
func newEngine(cfg *config.Config, store *docstore.Store) (*rag.Engine, error) {
	provider, err := llm.NewProvider(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("creating generation provider: %w", err)
	}

	return rag.NewEngine(store.Index(), store.Embedder(), provider, rag.Options{
		TopK:        cfg.Retrieval.TopK,
		MinScore:    cfg.Retrieval.MinScore,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Stop:        cfg.Generation.Stop,
	}), nil
}
