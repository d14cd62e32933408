package vectordb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(3, filepath.Join(t.TempDir(), "chromem.gob.gz"))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return store
}

func TestChromemStoreAddAndSearch(t *testing.T) {
	store := newTestChromemStore(t)

	chunks := []Chunk{
		mkChunk("a", "doc1.pdf", 1, 0, []float32{1, 0, 0}),
		mkChunk("b", "doc1.pdf", 1, 1, []float32{0, 1, 0}),
		mkChunk("c", "doc2.pdf", 1, 0, []float32{0, 0, 1}),
	}
	if err := store.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if store.Count() != 3 {
		t.Fatalf("Count = %d, want 3", store.Count())
	}

	results, err := store.Search(context.Background(), []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Chunk.ID != "b" {
		t.Fatalf("top result = %s, want b", results[0].Chunk.ID)
	}
	if results[0].Chunk.Document != "doc1.pdf" || results[0].Chunk.Seq != 1 {
		t.Fatalf("metadata not restored: %+v", results[0].Chunk)
	}
}

func TestChromemStoreSearchClampsK(t *testing.T) {
	store := newTestChromemStore(t)
	if err := store.Add(context.Background(), []Chunk{
		mkChunk("a", "doc1.pdf", 1, 0, []float32{1, 0, 0}),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.Search(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestChromemStoreSearchEmpty(t *testing.T) {
	store := newTestChromemStore(t)
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results from empty store, want 0", len(results))
	}
}

func TestChromemStoreDimensionMismatch(t *testing.T) {
	store := newTestChromemStore(t)

	err := store.Add(context.Background(), []Chunk{
		mkChunk("bad", "doc1.pdf", 1, 0, []float32{1, 0}),
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Add error = %v, want ErrDimensionMismatch", err)
	}

	_, err = store.Search(context.Background(), []float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Search error = %v, want ErrDimensionMismatch", err)
	}
}

func TestChromemStoreRemoveDocument(t *testing.T) {
	store := newTestChromemStore(t)
	if err := store.Add(context.Background(), []Chunk{
		mkChunk("a", "doc1.pdf", 1, 0, []float32{1, 0, 0}),
		mkChunk("b", "doc2.pdf", 1, 0, []float32{0, 1, 0}),
		mkChunk("c", "doc1.pdf", 2, 0, []float32{0, 0, 1}),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	removed, err := store.RemoveDocument(context.Background(), "doc1.pdf")
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if store.Count() != 1 {
		t.Fatalf("Count = %d, want 1", store.Count())
	}

	removed, err = store.RemoveDocument(context.Background(), "missing.pdf")
	if err != nil {
		t.Fatalf("RemoveDocument of missing: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestChromemStorePersistLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "chromem.gob.gz")

	store, err := NewChromemStore(3, path)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.Add(context.Background(), []Chunk{
		mkChunk("a", "doc1.pdf", 1, 0, []float32{1, 0, 0}),
		mkChunk("b", "doc1.pdf", 2, 1, []float32{0, 1, 0}),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Persist(context.Background()); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := NewChromemStore(3, path)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Count() != 2 {
		t.Fatalf("Count after reload = %d, want 2", reloaded.Count())
	}

	results, err := reloaded.Search(context.Background(), []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "b" {
		t.Fatalf("top result after reload = %+v, want id b", results)
	}
}

func TestChromemStoreLoadMissingFile(t *testing.T) {
	store, err := NewChromemStore(3, filepath.Join(t.TempDir(), "nope.gob.gz"))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Count = %d, want 0", store.Count())
	}
}

func TestChromemStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromem.gob.gz")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store, err := NewChromemStore(3, path)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	err = store.Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load error = %v, want ErrCorrupt", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Count after corrupt load = %d, want 0", store.Count())
	}
}
