package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/extract"
	"github.com/docqa/docqa/internal/logger"
	"github.com/docqa/docqa/internal/vectordb"
	"github.com/docqa/docqa/internal/walker"
)

// Ingest indexes extracted pages under the given document name,
// replacing any chunks a previous version of the document left in the
// index. On failure the returned document carries the error status and
// the index holds no chunks for it.
func (s *Store) Ingest(ctx context.Context, name, sourcePath string, pages []extract.Page, onProgress ProgressFunc) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if info, err := os.Stat(sourcePath); err == nil {
		size = info.Size()
	}
	return s.ingestLocked(ctx, docMeta{name: name, path: sourcePath, size: size}, pages, onProgress)
}

// IngestFile extracts and indexes one file. Unchanged content (same
// name, same hash) short-circuits to the existing record; a changed
// file with the same name deterministically overwrites it.
func (s *Store) IngestFile(ctx context.Context, path string, onProgress ProgressFunc) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := filepath.Base(abs)
	meta := docMeta{name: name, path: abs}

	info, err := os.Stat(abs)
	if err != nil {
		return s.recordFailure(ctx, meta, fmt.Errorf("%w: %v", extract.ErrParse, err))
	}
	meta.size = info.Size()

	hash, err := walker.HashFile(abs)
	if err != nil {
		return s.recordFailure(ctx, meta, fmt.Errorf("%w: %v", extract.ErrParse, err))
	}
	meta.hash = hash

	existing, err := s.getByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusIndexed && existing.Hash == hash {
		logger.Debug("document %s unchanged, skipping", name)
		return existing, nil
	}

	pages, err := extract.Extract(abs)
	if err != nil {
		return s.recordFailure(ctx, meta, err)
	}

	return s.ingestLocked(ctx, meta, pages, onProgress)
}

// AddFiles ingests each path, isolating parse failures per document.
// An unavailable embedding backend aborts the batch: the remaining
// paths are recorded as errors without being attempted. onDocument,
// when non-nil, is invoked with each document's final record as that
// path finishes.
func (s *Store) AddFiles(ctx context.Context, paths []string, onProgress ProgressFunc, onDocument DocumentFunc) ([]Document, error) {
	var docs []Document
	var unavailable error

	for _, path := range paths {
		if unavailable != nil {
			doc, err := s.recordSkipped(ctx, path)
			if err != nil {
				return docs, err
			}
			docs = append(docs, *doc)
			if onDocument != nil {
				onDocument(*doc)
			}
			continue
		}

		doc, err := s.IngestFile(ctx, path, onProgress)
		if err != nil && errors.Is(err, embeddings.ErrUnavailable) {
			unavailable = err
		}
		if doc == nil {
			if err != nil {
				return docs, err
			}
			continue
		}
		docs = append(docs, *doc)
		if onDocument != nil {
			onDocument(*doc)
		}
	}
	return docs, unavailable
}

// Remove deletes a document and its chunks. Removing an unknown name
// is not an error.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.getByName(ctx, name)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}

	if _, err := s.index.RemoveDocument(ctx, name); err != nil {
		return false, fmt.Errorf("removing chunks: %w", err)
	}
	if err := s.index.Persist(ctx); err != nil {
		return false, fmt.Errorf("persisting index: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return false, fmt.Errorf("deleting document row: %w", err)
	}

	logger.Info("removed document %s (%d chunks)", name, doc.Chunks)
	return true, nil
}

// ingestLocked runs the chunk/embed/index pipeline. Callers hold s.mu.
func (s *Store) ingestLocked(ctx context.Context, meta docMeta, pages []extract.Page, onProgress ProgressFunc) (*Document, error) {
	doc, err := s.upsertIndexing(ctx, meta)
	if err != nil {
		return nil, err
	}

	// Clear chunks a previous version of this document left behind.
	if _, err := s.index.RemoveDocument(ctx, meta.name); err != nil {
		return s.failDocument(ctx, doc, fmt.Errorf("clearing previous chunks: %w", err))
	}

	total := len(pages)
	var staged []vectordb.Chunk
	seq := 0

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return s.failDocument(ctx, doc, err)
		}

		text := strings.TrimSpace(page.Text)
		if text == "" {
			reportProgress(onProgress, meta.name, i+1, total)
			continue
		}

		pieces := s.splitter.Split(text)
		texts := make([]string, len(pieces))
		for j, piece := range pieces {
			texts[j] = piece.Text
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return s.failDocument(ctx, doc, fmt.Errorf("embedding page %d: %w", page.Number, err))
		}

		for j, piece := range pieces {
			staged = append(staged, vectordb.Chunk{
				ID:        uuid.New().String(),
				Document:  meta.name,
				Page:      page.Number,
				Seq:       seq,
				Text:      piece.Text,
				Embedding: vectors[j],
			})
			seq++
		}
		reportProgress(onProgress, meta.name, i+1, total)
	}

	if len(staged) > 0 {
		if err := s.index.Add(ctx, staged); err != nil {
			return s.failDocument(ctx, doc, fmt.Errorf("adding chunks: %w", err))
		}
	}
	if err := s.index.Persist(ctx); err != nil {
		return s.failDocument(ctx, doc, fmt.Errorf("persisting index: %w", err))
	}

	logger.Debug("indexed %s: %d pages, %d chunks", meta.name, len(pages), len(staged))
	return s.markIndexed(ctx, doc, len(pages), len(staged))
}

// failDocument records a failed ingestion and scrubs the document's
// chunks so the index never keeps a partial document. The document is
// returned alongside the cause so batch callers can report its final
// state.
func (s *Store) failDocument(ctx context.Context, doc *Document, cause error) (*Document, error) {
	if removed, err := s.index.RemoveDocument(ctx, doc.Name); err == nil && removed > 0 {
		_ = s.index.Persist(ctx)
	}

	doc.Status = StatusError
	doc.ErrorMessage = cause.Error()
	if err := s.markError(ctx, doc.ID, cause.Error()); err != nil {
		logger.Error("recording failure for %s: %v", doc.Name, err)
	}
	return doc, cause
}

// recordFailure creates or resets the row and immediately marks it
// failed, for errors that occur before the pipeline starts.
func (s *Store) recordFailure(ctx context.Context, meta docMeta, cause error) (*Document, error) {
	doc, err := s.upsertIndexing(ctx, meta)
	if err != nil {
		return nil, err
	}
	return s.failDocument(ctx, doc, cause)
}

// recordSkipped marks a path that was never attempted because the
// embedding backend went away earlier in the batch.
func (s *Store) recordSkipped(ctx context.Context, path string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc, cause := s.recordFailure(ctx, docMeta{name: filepath.Base(abs), path: abs}, embeddings.ErrUnavailable)
	if doc == nil {
		return nil, cause
	}
	return doc, nil
}

func reportProgress(fn ProgressFunc, document string, processed, total int) {
	if fn != nil {
		fn(document, processed, total)
	}
}
