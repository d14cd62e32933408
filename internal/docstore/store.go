// Package docstore owns the document lifecycle: chunking, embedding,
// index membership and durable metadata. It is the only mutation path
// to the vector index.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/db"
	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/logger"
	"github.com/docqa/docqa/internal/vectordb"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusIndexing Status = "indexing"
	StatusIndexed  Status = "indexed"
	StatusError    Status = "error"
)

// Document is the durable record of one ingested file. A document is
// never reported as indexed before every chunk is embedded and the
// index snapshot persisted.
type Document struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Hash         string     `json:"hash,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	Pages        int        `json:"pages"`
	Chunks       int        `json:"chunks"`
	Status       Status     `json:"status"`
	ErrorMessage string     `json:"error,omitempty"`
	AddedAt      time.Time  `json:"added_at"`
	IndexedAt    *time.Time `json:"indexed_at,omitempty"`
}

// ProgressFunc receives per-page ingestion progress for one document.
type ProgressFunc func(document string, processed, total int)

// DocumentFunc receives a document's final record as each path in a
// batch reaches its terminal state, indexed or error.
type DocumentFunc func(Document)

// Store coordinates the metadata database, the vector index and the
// embedding backend. All index mutations run under one writer lock;
// reads of the index may proceed concurrently.
type Store struct {
	mu       sync.Mutex
	db       *db.DB
	index    vectordb.VectorStore
	embedder embeddings.Embedder
	splitter *chunker.Chunker
}

// Open builds a Store and loads the index snapshot. A corrupt snapshot
// is logged, the index starts empty, and previously indexed documents
// are flipped to an error status so callers know to re-add them.
func Open(ctx context.Context, database *db.DB, index vectordb.VectorStore, embedder embeddings.Embedder, splitter *chunker.Chunker) (*Store, error) {
	s := &Store{db: database, index: index, embedder: embedder, splitter: splitter}

	if err := index.Load(ctx); err != nil {
		if !errors.Is(err, vectordb.ErrCorrupt) {
			return nil, fmt.Errorf("loading index snapshot: %w", err)
		}
		logger.Warn("index snapshot corrupt, starting empty: %v", err)
		if _, err := database.ExecContext(ctx,
			`UPDATE documents SET status = ?, error = ? WHERE status = ?`,
			StatusError, "index snapshot corrupt; re-add this document", StatusIndexed,
		); err != nil {
			return nil, fmt.Errorf("marking documents after corrupt snapshot: %w", err)
		}
	}
	return s, nil
}

// Index exposes the vector store for read-only search access.
func (s *Store) Index() vectordb.VectorStore {
	return s.index
}

// Embedder exposes the embedding backend so query paths embed with the
// same model that built the index.
func (s *Store) Embedder() embeddings.Embedder {
	return s.embedder
}

// DB exposes the metadata database for collaborators that persist
// alongside documents, such as chat history.
func (s *Store) DB() *db.DB {
	return s.db
}

// List returns all documents ordered by name.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, hash, size_bytes, pages, chunks, status, error, added_at, indexed_at
		FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Get returns the document with the given name, or nil if absent.
func (s *Store) Get(ctx context.Context, name string) (*Document, error) {
	return s.getByName(ctx, name)
}

func (s *Store) getByName(ctx context.Context, name string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, hash, size_bytes, pages, chunks, status, error, added_at, indexed_at
		FROM documents WHERE name = ?`, name)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// docMeta carries the row fields known before ingestion starts.
type docMeta struct {
	name string
	path string
	hash string
	size int64
}

// upsertIndexing creates or resets the document row for a fresh
// ingestion attempt.
func (s *Store) upsertIndexing(ctx context.Context, meta docMeta) (*Document, error) {
	existing, err := s.getByName(ctx, meta.name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		doc := &Document{
			ID:        uuid.New().String(),
			Name:      meta.name,
			Path:      meta.path,
			Hash:      meta.hash,
			SizeBytes: meta.size,
			Status:    StatusIndexing,
			AddedAt:   now,
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (id, name, path, hash, size_bytes, status, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Name, doc.Path, doc.Hash, doc.SizeBytes, doc.Status, now.Format(time.DateTime),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting document: %w", err)
		}
		return doc, nil
	}

	existing.Path = meta.path
	existing.Hash = meta.hash
	existing.SizeBytes = meta.size
	existing.Status = StatusIndexing
	existing.ErrorMessage = ""
	existing.Pages = 0
	existing.Chunks = 0
	existing.IndexedAt = nil

	_, err = s.db.ExecContext(ctx, `
		UPDATE documents
		SET path = ?, hash = ?, size_bytes = ?, status = ?, error = '', pages = 0, chunks = 0, indexed_at = NULL
		WHERE id = ?`,
		existing.Path, existing.Hash, existing.SizeBytes, existing.Status, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("resetting document: %w", err)
	}
	return existing, nil
}

// markIndexed records a completed ingestion on the row.
func (s *Store) markIndexed(ctx context.Context, doc *Document, pages, chunks int) (*Document, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, pages = ?, chunks = ?, error = '', indexed_at = ?
		WHERE id = ?`,
		StatusIndexed, pages, chunks, now.Format(time.DateTime), doc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking document indexed: %w", err)
	}

	doc.Status = StatusIndexed
	doc.Pages = pages
	doc.Chunks = chunks
	doc.ErrorMessage = ""
	doc.IndexedAt = &now
	return doc, nil
}

// markError records a failed ingestion on the row.
func (s *Store) markError(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = ? WHERE id = ?`,
		StatusError, message, id,
	)
	if err != nil {
		return fmt.Errorf("marking document error: %w", err)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		doc       Document
		status    string
		addedAt   string
		indexedAt sql.NullString
	)

	err := sc.Scan(
		&doc.ID, &doc.Name, &doc.Path, &doc.Hash, &doc.SizeBytes,
		&doc.Pages, &doc.Chunks, &status, &doc.ErrorMessage,
		&addedAt, &indexedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = Status(status)
	if t, parseErr := time.Parse(time.DateTime, addedAt); parseErr == nil {
		doc.AddedAt = t
	}
	if indexedAt.Valid {
		if t, parseErr := time.Parse(time.DateTime, indexedAt.String); parseErr == nil {
			doc.IndexedAt = &t
		}
	}
	return &doc, nil
}
