// Package rag turns a question into a grounded answer: embed the
// question, retrieve the closest chunks, build a prompt that cites its
// sources, and hand it to the generation backend. Confidence reflects
// retrieval similarity, not the model's own certainty.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/vectordb"
)

// ErrGeneration marks a failed generation call. The provider's error,
// llm.ErrTimeout included, stays in the chain so callers can tell a
// timeout from any other backend fault.
var ErrGeneration = errors.New("answer generation failed")

const (
	noDocumentsAnswer = "I don't have any documents to search. Please add some documents first."
	noMatchesAnswer   = "I couldn't find relevant information in your documents to answer this question."

	// snippetRunes bounds source snippets for display.
	snippetRunes = 200
)

const promptHeader = `You are a helpful assistant answering questions based on the user's private documents.
Use ONLY the provided context to answer. If the answer is not in the context, say "I couldn't find that information in your documents."
Always cite which document(s) you used.`

// Answer is the result of one question.
type Answer struct {
	Text       string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// Source cites one document page an answer drew on.
type Source struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// Options tunes retrieval and generation. Zero values for TopK and
// MaxTokens fall back to the usual defaults; MinScore 0 keeps every
// result.
type Options struct {
	TopK        int
	MinScore    float64
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Engine answers questions over the indexed corpus.
type Engine struct {
	index    vectordb.VectorStore
	embedder embeddings.Embedder
	provider llm.Provider
	opts     Options
}

// NewEngine wires retrieval and generation together.
func NewEngine(index vectordb.VectorStore, embedder embeddings.Embedder, provider llm.Provider, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Engine{index: index, embedder: embedder, provider: provider, opts: opts}
}

// Answer retrieves context for the question and generates a grounded
// answer. An empty index or a question with no relevant chunks yields a
// fixed answer with confidence 0 and no generation call. Generation
// errors, llm.ErrTimeout included, propagate to the caller instead of
// being demoted to a low-confidence answer.
func (e *Engine) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	if e.index.Count() == 0 {
		return &Answer{Text: noDocumentsAnswer, Sources: []Source{}}, nil
	}

	retained, err := e.retrieve(ctx, question, e.opts.TopK)
	if err != nil {
		return nil, err
	}
	if len(retained) == 0 {
		return &Answer{Text: noMatchesAnswer, Sources: []Source{}}, nil
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:      buildPrompt(question, retained),
		MaxTokens:   e.opts.MaxTokens,
		Temperature: e.opts.Temperature,
		Stop:        e.opts.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return &Answer{
		Text:       strings.TrimSpace(resp.Text),
		Sources:    collectSources(retained),
		Confidence: confidence(retained),
	}, nil
}

// Search returns the scored chunks the engine would ground an answer
// on, without generating. k <= 0 uses the configured top-k.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if k <= 0 {
		k = e.opts.TopK
	}
	if e.index.Count() == 0 {
		return nil, nil
	}
	return e.retrieve(ctx, query, k)
}

// retrieve embeds the query, searches the index, and drops results
// below the relevance floor.
func (e *Engine) retrieve(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding question: got %d vectors, want 1", len(vectors))
	}

	results, err := e.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	retained := results[:0:0]
	for _, r := range results {
		if r.Score >= e.opts.MinScore {
			retained = append(retained, r)
		}
	}
	return retained, nil
}

// buildPrompt assembles the grounded prompt: instruction header, one
// cited context block per chunk, then the question.
func buildPrompt(question string, results []vectordb.SearchResult) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nContext:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s, Page %d]\n%s", r.Chunk.Document, r.Chunk.Page, r.Chunk.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// confidence is the mean similarity of the retained chunks, clamped to
// [0, 1]. Better matches monotonically raise it.
func confidence(results []vectordb.SearchResult) float64 {
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))
	switch {
	case mean < 0:
		return 0
	case mean > 1:
		return 1
	}
	return mean
}

// collectSources cites each (document, page) pair once at its best
// score, ordered by descending score.
func collectSources(results []vectordb.SearchResult) []Source {
	type key struct {
		document string
		page     int
	}
	best := make(map[key]Source, len(results))
	for _, r := range results {
		k := key{r.Chunk.Document, r.Chunk.Page}
		if existing, ok := best[k]; ok && existing.Score >= r.Score {
			continue
		}
		best[k] = Source{
			Document: r.Chunk.Document,
			Page:     r.Chunk.Page,
			Score:    r.Score,
			Snippet:  snippet(r.Chunk.Text),
		}
	}

	sources := make([]Source, 0, len(best))
	for _, s := range best {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Score != sources[j].Score {
			return sources[i].Score > sources[j].Score
		}
		if sources[i].Document != sources[j].Document {
			return sources[i].Document < sources[j].Document
		}
		return sources[i].Page < sources[j].Page
	})
	return sources
}

// snippet truncates chunk text to the display bound, rune-safe.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
