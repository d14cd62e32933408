// Package chunker splits extracted document text into overlapping
// token windows, the unit of embedding and retrieval. Tokens are
// whitespace-delimited words, so every chunk stays independently
// decodable text.
package chunker

import (
	"fmt"
	"strings"
)

// Piece is one chunk of text. Offset is the index of the piece's first
// token within the source text's token sequence.
type Piece struct {
	Text   string
	Offset int
}

// Chunker produces token windows of at most maxTokens tokens where
// consecutive windows share overlapTokens tokens.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// New returns a Chunker. The overlap must be strictly smaller than the
// window size; violating that is a configuration error, not a runtime
// condition, so it is rejected here.
func New(maxTokens, overlapTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("chunker: max tokens must be positive, got %d", maxTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("chunker: overlap tokens must be non-negative, got %d", overlapTokens)
	}
	if overlapTokens >= maxTokens {
		return nil, fmt.Errorf("chunker: overlap tokens (%d) must be smaller than max tokens (%d)", overlapTokens, maxTokens)
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens}, nil
}

// MaxTokens returns the configured window size.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// OverlapTokens returns the configured window overlap.
func (c *Chunker) OverlapTokens() int { return c.overlapTokens }

// Split chunks text into overlapping token windows. Joining each
// piece's token sequence after dropping the leading overlap of every
// piece but the first reconstructs the source token sequence exactly.
// Text of at most maxTokens tokens, including empty text, yields
// exactly one piece.
func (c *Chunker) Split(text string) []Piece {
	tokens := strings.Fields(text)

	if len(tokens) <= c.maxTokens {
		return []Piece{{Text: strings.Join(tokens, " "), Offset: 0}}
	}

	step := c.maxTokens - c.overlapTokens
	var pieces []Piece
	for start := 0; start < len(tokens); start += step {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		pieces = append(pieces, Piece{
			Text:   strings.Join(tokens[start:end], " "),
			Offset: start,
		})
		if end == len(tokens) {
			break
		}
	}
	return pieces
}
