package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "documents"

// ChromemStore implements VectorStore using chromem-go. Chunks arrive
// with precomputed embeddings, so the collection's embedding func is
// never invoked. Snapshot durability and tie ordering follow the
// library's behavior; MemoryIndex is the reference backend.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
	path       string
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates an empty chromem-backed store whose export
// file lives at path.
func NewChromemStore(dimensions int, path string) (*ChromemStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vectordb: dimensions must be positive, got %d", dimensions)
	}

	ef := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("chromem store requires precomputed embeddings")
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		dimensions: dimensions,
		path:       path,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) Dimensions() int { return s.dimensions }

func (s *ChromemStore) Count() int { return s.collection.Count() }

func (s *ChromemStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimensions)
		}
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata:  chunkMetadata(c),
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Chunk: Chunk{
				ID:        r.ID,
				Text:      r.Content,
				Embedding: r.Embedding,
				Document:  r.Metadata["document"],
				Page:      atoiOrZero(r.Metadata["page"]),
				Seq:       atoiOrZero(r.Metadata["seq"]),
			},
			Score: float64(r.Similarity),
		}
	}
	return out, nil
}

func (s *ChromemStore) RemoveDocument(ctx context.Context, document string) (int, error) {
	before := s.collection.Count()
	if before == 0 {
		return 0, nil
	}

	where := map[string]string{"document": document}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return 0, fmt.Errorf("chromem delete: %w", err)
	}
	return before - s.collection.Count(), nil
}

func (s *ChromemStore) Persist(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := s.db.ExportToFile(s.path, true, ""); err != nil {
		return fmt.Errorf("chromem export: %w", err)
	}
	return nil
}

func (s *ChromemStore) Load(ctx context.Context) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	if err := s.db.ImportFromFile(s.path, ""); err != nil {
		s.reset()
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		s.reset()
		return fmt.Errorf("%w: collection %q missing after import", ErrCorrupt, collectionName)
	}
	s.collection = col
	return nil
}

// reset discards all state after a failed import.
func (s *ChromemStore) reset() {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return
	}
	s.db = db
	s.collection = col
}

func chunkMetadata(c Chunk) map[string]string {
	return map[string]string{
		"document": c.Document,
		"page":     strconv.Itoa(c.Page),
		"seq":      strconv.Itoa(c.Seq),
	}
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
