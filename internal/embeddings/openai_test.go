package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeOpenAI mimics the /embeddings endpoint of an OpenAI-compatible
// local server, returning one fixed-size vector per input.
func fakeOpenAI(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Object string  `json:"object"`
			Data   []datum `json:"data"`
			Model  string  `json:"model"`
		}{Object: "list", Model: "test"}
		for i, text := range req.Input {
			vec := make([]float32, dims)
			for j := range vec {
				vec[j] = float32(len(text)+j) / 100
			}
			resp.Data = append(resp.Data, datum{Object: "embedding", Index: i, Embedding: vec})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedBatch(t *testing.T) {
	srv := fakeOpenAI(t, 6)
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "local-embed", 6)

	texts := []string{"x", "yy", "zzz"}
	vecs, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != 6 {
			t.Errorf("vector %d has %d dimensions, want 6", i, len(v))
		}
		if want := float32(len(texts[i])) / 100; v[0] != want {
			t.Errorf("vector %d first component %f, want %f (order not preserved?)", i, v[0], want)
		}
	}
}

func TestOpenAIEmbedUnavailable(t *testing.T) {
	srv := fakeOpenAI(t, 6)
	srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "local-embed", 6)
	_, err := e.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for unreachable server, got: %v", err)
	}
}

func TestOpenAIEmbedDimensionMismatch(t *testing.T) {
	srv := fakeOpenAI(t, 12)
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "local-embed", 6)
	_, err := e.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("dimension mismatch is a configuration fault, not unavailability: %v", err)
	}
}
