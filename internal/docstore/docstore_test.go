package docstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docqa/docqa/internal/chunker"
	"github.com/docqa/docqa/internal/db"
	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/extract"
	"github.com/docqa/docqa/internal/vectordb"
)

const testDims = 8

// mockEmbedder derives deterministic vectors from a text hash so tests
// never need a model. Setting fail makes every call return that error.
type mockEmbedder struct {
	fail  error
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, testDims)
		for j := range vec {
			vec[j] = float32(sum[j]) / 255
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return testDims }

func (m *mockEmbedder) Name() string { return "mock" }

func newTestStore(t *testing.T, embedder embeddings.Embedder) *Store {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	index, err := vectordb.NewMemoryIndex(testDims, filepath.Join(t.TempDir(), "index.bin"))
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}

	splitter, err := chunker.New(16, 4)
	if err != nil {
		t.Fatalf("creating chunker: %v", err)
	}

	store, err := Open(context.Background(), database, index, embedder, splitter)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	return store
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestIngestMarksIndexed(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	ctx := context.Background()

	pages := []extract.Page{
		{Number: 1, Text: "alpha beta gamma"},
		{Number: 2, Text: "delta epsilon"},
	}
	doc, err := store.Ingest(ctx, "report.pdf", "/tmp/report.pdf", pages, nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Status != StatusIndexed {
		t.Errorf("status = %q, want %q", doc.Status, StatusIndexed)
	}
	if doc.Pages != 2 {
		t.Errorf("pages = %d, want 2", doc.Pages)
	}
	if doc.Chunks != 2 {
		t.Errorf("chunks = %d, want 2", doc.Chunks)
	}
	if doc.IndexedAt == nil {
		t.Error("indexed_at not set")
	}
	if got := store.Index().Count(); got != doc.Chunks {
		t.Errorf("index count = %d, want %d", got, doc.Chunks)
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "report.pdf" {
		t.Fatalf("List() = %+v, want one report.pdf", docs)
	}
}

func TestIngestSkipsBlankPages(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})

	pages := []extract.Page{
		{Number: 1, Text: "   \n\t  "},
		{Number: 2, Text: "real content here"},
	}
	doc, err := store.Ingest(context.Background(), "sparse.pdf", "", pages, nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Pages != 2 {
		t.Errorf("pages = %d, want 2", doc.Pages)
	}
	if doc.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", doc.Chunks)
	}
}

func TestIngestAllBlankStillIndexes(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})

	doc, err := store.Ingest(context.Background(), "empty.txt", "", []extract.Page{{Number: 1, Text: "  "}}, nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Status != StatusIndexed {
		t.Errorf("status = %q, want %q", doc.Status, StatusIndexed)
	}
	if doc.Chunks != 0 {
		t.Errorf("chunks = %d, want 0", doc.Chunks)
	}
	if got := store.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0", got)
	}
}

func TestIngestReportsProgress(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})

	pages := []extract.Page{
		{Number: 1, Text: "one"},
		{Number: 2, Text: "two"},
		{Number: 3, Text: "three"},
	}
	var seen []int
	_, err := store.Ingest(context.Background(), "p.pdf", "", pages, func(document string, processed, total int) {
		if document != "p.pdf" {
			t.Errorf("progress document = %q, want p.pdf", document)
		}
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
		seen = append(seen, processed)
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("progress calls = %d, want 3", len(seen))
	}
	for i, processed := range seen {
		if processed != i+1 {
			t.Errorf("progress[%d] = %d, want %d", i, processed, i+1)
		}
	}
}

func TestIngestEmbedFailure(t *testing.T) {
	embedder := &mockEmbedder{fail: errors.New("model exploded")}
	store := newTestStore(t, embedder)
	ctx := context.Background()

	doc, err := store.Ingest(ctx, "bad.pdf", "", []extract.Page{{Number: 1, Text: "text"}}, nil)
	if err == nil {
		t.Fatal("Ingest() error = nil, want failure")
	}
	if doc == nil {
		t.Fatal("Ingest() doc = nil, want error document")
	}
	if doc.Status != StatusError {
		t.Errorf("status = %q, want %q", doc.Status, StatusError)
	}
	if doc.ErrorMessage == "" {
		t.Error("error message not set")
	}
	if got := store.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0 after failure", got)
	}

	stored, err := store.Get(ctx, "bad.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored == nil || stored.Status != StatusError {
		t.Fatalf("stored document = %+v, want error status", stored)
	}
}

func TestIngestReplacesPreviousChunks(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	ctx := context.Background()

	first := []extract.Page{
		{Number: 1, Text: "old page one"},
		{Number: 2, Text: "old page two"},
	}
	if _, err := store.Ingest(ctx, "doc.pdf", "", first, nil); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	if got := store.Index().Count(); got != 2 {
		t.Fatalf("index count after first ingest = %d, want 2", got)
	}

	second := []extract.Page{{Number: 1, Text: "new content"}}
	doc, err := store.Ingest(ctx, "doc.pdf", "", second, nil)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if doc.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", doc.Chunks)
	}
	if got := store.Index().Count(); got != 1 {
		t.Errorf("index count after reingest = %d, want 1", got)
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("List() returned %d documents, want 1", len(docs))
	}
}

func TestIngestFailureClearsPreviousChunks(t *testing.T) {
	embedder := &mockEmbedder{}
	store := newTestStore(t, embedder)
	ctx := context.Background()

	if _, err := store.Ingest(ctx, "doc.pdf", "", []extract.Page{{Number: 1, Text: "good version"}}, nil); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	if got := store.Index().Count(); got != 1 {
		t.Fatalf("index count = %d, want 1", got)
	}

	embedder.fail = errors.New("backend gone")
	doc, err := store.Ingest(ctx, "doc.pdf", "", []extract.Page{{Number: 1, Text: "newer version"}}, nil)
	if err == nil {
		t.Fatal("second Ingest() error = nil, want failure")
	}
	if doc.Status != StatusError {
		t.Errorf("status = %q, want %q", doc.Status, StatusError)
	}
	if got := store.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0; stale chunks survived a failed reingest", got)
	}
}

func TestIngestFileUnchangedSkips(t *testing.T) {
	embedder := &mockEmbedder{}
	store := newTestStore(t, embedder)
	ctx := context.Background()
	path := writeDoc(t, t.TempDir(), "notes.txt", "the quick brown fox")

	first, err := store.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatalf("first IngestFile() error = %v", err)
	}
	callsAfterFirst := embedder.calls

	second, err := store.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatalf("second IngestFile() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("document ID changed on unchanged file: %q != %q", second.ID, first.ID)
	}
	if second.Status != StatusIndexed {
		t.Errorf("status = %q, want %q", second.Status, StatusIndexed)
	}
	if embedder.calls != callsAfterFirst {
		t.Errorf("embedder called %d more times for unchanged file", embedder.calls-callsAfterFirst)
	}
}

func TestIngestFileChangedReindexes(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	ctx := context.Background()
	dir := t.TempDir()
	path := writeDoc(t, dir, "notes.txt", "version one")

	first, err := store.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatalf("first IngestFile() error = %v", err)
	}

	writeDoc(t, dir, "notes.txt", "version two with different words")
	second, err := store.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatalf("second IngestFile() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("document ID changed on reindex: %q != %q", second.ID, first.ID)
	}
	if second.Hash == first.Hash {
		t.Error("hash unchanged after content change")
	}
	if got := store.Index().Count(); got != second.Chunks {
		t.Errorf("index count = %d, want %d", got, second.Chunks)
	}
}

func TestIngestFileMissing(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})

	doc, err := store.IngestFile(context.Background(), "/nonexistent/ghost.txt", nil)
	if err == nil {
		t.Fatal("IngestFile() error = nil, want failure")
	}
	if !errors.Is(err, extract.ErrParse) {
		t.Errorf("error = %v, want extract.ErrParse", err)
	}
	if doc == nil || doc.Status != StatusError {
		t.Fatalf("doc = %+v, want error document", doc)
	}
}

func TestIngestFileUnsupportedExtension(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	path := writeDoc(t, t.TempDir(), "image.png", "not really a png")

	doc, err := store.IngestFile(context.Background(), path, nil)
	if err == nil {
		t.Fatal("IngestFile() error = nil, want failure")
	}
	if !errors.Is(err, extract.ErrUnsupported) {
		t.Errorf("error = %v, want extract.ErrUnsupported", err)
	}
	if doc.Status != StatusError {
		t.Errorf("status = %q, want %q", doc.Status, StatusError)
	}
	if got := store.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0", got)
	}
}

func TestAddFilesIsolatesParseFailures(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	dir := t.TempDir()
	good := writeDoc(t, dir, "a.txt", "first document")
	bad := writeDoc(t, dir, "b.png", "unsupported")
	alsoGood := writeDoc(t, dir, "c.txt", "third document")

	docs, err := store.AddFiles(context.Background(), []string{good, bad, alsoGood}, nil, nil)
	if err != nil {
		t.Fatalf("AddFiles() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("AddFiles() returned %d documents, want 3", len(docs))
	}

	byName := make(map[string]Document)
	for _, doc := range docs {
		byName[doc.Name] = doc
	}
	if byName["a.txt"].Status != StatusIndexed {
		t.Errorf("a.txt status = %q, want %q", byName["a.txt"].Status, StatusIndexed)
	}
	if byName["b.png"].Status != StatusError {
		t.Errorf("b.png status = %q, want %q", byName["b.png"].Status, StatusError)
	}
	if byName["c.txt"].Status != StatusIndexed {
		t.Errorf("c.txt status = %q, want %q", byName["c.txt"].Status, StatusIndexed)
	}
}

func TestAddFilesNotifiesPerDocument(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "a.txt", "first document"),
		writeDoc(t, dir, "b.png", "unsupported"),
	}

	var finished []Document
	docs, err := store.AddFiles(context.Background(), paths, nil, func(doc Document) {
		finished = append(finished, doc)
	})
	if err != nil {
		t.Fatalf("AddFiles() error = %v", err)
	}
	if len(finished) != len(docs) {
		t.Fatalf("callback fired %d times, want %d", len(finished), len(docs))
	}
	if finished[0].Name != "a.txt" || finished[0].Status != StatusIndexed {
		t.Errorf("finished[0] = %s/%s, want a.txt indexed", finished[0].Name, finished[0].Status)
	}
	if finished[1].Name != "b.png" || finished[1].Status != StatusError {
		t.Errorf("finished[1] = %s/%s, want b.png error", finished[1].Name, finished[1].Status)
	}
}

func TestAddFilesAbortsWhenEmbedderUnavailable(t *testing.T) {
	embedder := &mockEmbedder{fail: embeddings.ErrUnavailable}
	store := newTestStore(t, embedder)
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "a.txt", "first"),
		writeDoc(t, dir, "b.txt", "second"),
		writeDoc(t, dir, "c.txt", "third"),
	}

	docs, err := store.AddFiles(context.Background(), paths, nil, nil)
	if !errors.Is(err, embeddings.ErrUnavailable) {
		t.Fatalf("AddFiles() error = %v, want embeddings.ErrUnavailable", err)
	}
	if len(docs) != 3 {
		t.Fatalf("AddFiles() returned %d documents, want 3", len(docs))
	}
	for _, doc := range docs {
		if doc.Status != StatusError {
			t.Errorf("%s status = %q, want %q", doc.Name, doc.Status, StatusError)
		}
		if !strings.Contains(doc.ErrorMessage, "unavailable") {
			t.Errorf("%s error = %q, want mention of unavailability", doc.Name, doc.ErrorMessage)
		}
	}
	if embedder.calls != 1 {
		t.Errorf("embedder calls = %d, want 1; remaining files should not be attempted", embedder.calls)
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t, &mockEmbedder{})
	ctx := context.Background()

	if _, err := store.Ingest(ctx, "doc.pdf", "", []extract.Page{{Number: 1, Text: "content"}}, nil); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	removed, err := store.Remove(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !removed {
		t.Error("Remove() = false, want true")
	}
	if got := store.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0", got)
	}
	doc, err := store.Get(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc != nil {
		t.Errorf("Get() = %+v, want nil after removal", doc)
	}

	removed, err = store.Remove(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if removed {
		t.Error("second Remove() = true, want false")
	}
}

func TestOpenCorruptSnapshotFlagsIndexedRows(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	snapshotPath := filepath.Join(t.TempDir(), "index.bin")
	index, err := vectordb.NewMemoryIndex(testDims, snapshotPath)
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	splitter, err := chunker.New(16, 4)
	if err != nil {
		t.Fatalf("creating chunker: %v", err)
	}
	ctx := context.Background()

	store, err := Open(ctx, database, index, &mockEmbedder{}, splitter)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if _, err := store.Ingest(ctx, "doc.pdf", "", []extract.Page{{Number: 1, Text: "content"}}, nil); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if err := os.WriteFile(snapshotPath, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("corrupting snapshot: %v", err)
	}

	fresh, err := vectordb.NewMemoryIndex(testDims, snapshotPath)
	if err != nil {
		t.Fatalf("creating fresh index: %v", err)
	}
	reopened, err := Open(ctx, database, fresh, &mockEmbedder{}, splitter)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	if got := reopened.Index().Count(); got != 0 {
		t.Errorf("index count = %d, want 0 after corrupt load", got)
	}

	doc, err := reopened.Get(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc == nil {
		t.Fatal("document row disappeared")
	}
	if doc.Status != StatusError {
		t.Errorf("status = %q, want %q after corrupt snapshot", doc.Status, StatusError)
	}
	if !strings.Contains(doc.ErrorMessage, "corrupt") {
		t.Errorf("error message = %q, want mention of corruption", doc.ErrorMessage)
	}
}
