package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewRejectsBadArguments(t *testing.T) {
	if _, err := New(0, 0); err == nil {
		t.Error("expected error for zero max tokens")
	}
	if _, err := New(10, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
	if _, err := New(10, 10); err == nil {
		t.Error("expected error for overlap equal to max tokens")
	}
	if _, err := New(10, 15); err == nil {
		t.Error("expected error for overlap above max tokens")
	}
	if _, err := New(10, 9); err != nil {
		t.Errorf("expected overlap just below max to be accepted, got: %v", err)
	}
}

func TestSplitShortTextSinglePiece(t *testing.T) {
	c, err := New(500, 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, text := range []string{"", "   ", "one", "a handful of words only"} {
		pieces := c.Split(text)
		if len(pieces) != 1 {
			t.Errorf("Split(%q): got %d pieces, want exactly 1", text, len(pieces))
		}
		if pieces[0].Offset != 0 {
			t.Errorf("Split(%q): first piece offset %d, want 0", text, pieces[0].Offset)
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "t0 t1 t2 t3 t4 t5 t6 t7"
	pieces := c.Split(text)

	if len(pieces) != 3 {
		t.Fatalf("got %d pieces, want 3: %v", len(pieces), pieces)
	}

	want := []Piece{
		{Text: "t0 t1 t2 t3", Offset: 0},
		{Text: "t2 t3 t4 t5", Offset: 2},
		{Text: "t4 t5 t6 t7", Offset: 4},
	}
	for i, p := range pieces {
		if p != want[i] {
			t.Errorf("piece %d: got %+v, want %+v", i, p, want[i])
		}
	}

	// Consecutive pieces share exactly the overlap tokens.
	for i := 1; i < len(pieces); i++ {
		prev := strings.Fields(pieces[i-1].Text)
		cur := strings.Fields(pieces[i].Text)
		tail := strings.Join(prev[len(prev)-2:], " ")
		head := strings.Join(cur[:2], " ")
		if tail != head {
			t.Errorf("piece %d overlap mismatch: tail %q, head %q", i, tail, head)
		}
	}
}

func TestSplitReconstruction(t *testing.T) {
	cases := []struct {
		maxTokens int
		overlap   int
		tokens    int
	}{
		{4, 0, 10},
		{4, 1, 10},
		{4, 3, 5},
		{5, 2, 23},
		{100, 10, 1000},
		{7, 2, 7},
		{7, 2, 8},
	}

	for _, tc := range cases {
		c, err := New(tc.maxTokens, tc.overlap)
		if err != nil {
			t.Fatalf("New(%d, %d): %v", tc.maxTokens, tc.overlap, err)
		}

		words := make([]string, tc.tokens)
		for i := range words {
			words[i] = fmt.Sprintf("w%d", i)
		}
		text := strings.Join(words, " ")

		pieces := c.Split(text)

		// Dropping the leading overlap of every piece after the first
		// must reconstruct the original token sequence.
		var rebuilt []string
		for i, p := range pieces {
			toks := strings.Fields(p.Text)
			if i > 0 {
				toks = toks[tc.overlap:]
			}
			rebuilt = append(rebuilt, toks...)
		}
		if got := strings.Join(rebuilt, " "); got != text {
			t.Errorf("max=%d overlap=%d tokens=%d: reconstruction mismatch\n got: %s\nwant: %s",
				tc.maxTokens, tc.overlap, tc.tokens, got, text)
		}

		// Offsets must match each piece's position in the token sequence.
		for i, p := range pieces {
			toks := strings.Fields(p.Text)
			if p.Offset+len(toks) > tc.tokens {
				t.Errorf("piece %d overruns token sequence: offset %d len %d total %d",
					i, p.Offset, len(toks), tc.tokens)
			}
			if len(toks) > 0 && toks[0] != words[p.Offset] {
				t.Errorf("piece %d: first token %q, want %q at offset %d", i, toks[0], words[p.Offset], p.Offset)
			}
		}
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	c, err := New(3, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pieces := c.Split("a\tb\n  c   d\n\ne")
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	if pieces[0].Text != "a b c" {
		t.Errorf("first piece: got %q, want %q", pieces[0].Text, "a b c")
	}
	if pieces[1].Text != "c d e" {
		t.Errorf("second piece: got %q, want %q", pieces[1].Text, "c d e")
	}
}
