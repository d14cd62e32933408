package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: " Paris is the capital.", Done: true})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3.2", 5*time.Second)
	resp, err := p.Generate(context.Background(), GenerateRequest{
		Prompt:      "What is the capital of France?",
		MaxTokens:   64,
		Temperature: 0.3,
		Stop:        []string{"Question:"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != " Paris is the capital." {
		t.Fatalf("Text = %q", resp.Text)
	}

	if gotReq.Model != "llama3.2" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}
	if gotReq.Options.NumPredict != 64 {
		t.Errorf("num_predict = %d", gotReq.Options.NumPredict)
	}
	if len(gotReq.Options.Stop) != 1 || gotReq.Options.Stop[0] != "Question:" {
		t.Errorf("stop = %v", gotReq.Options.Stop)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3.2", 5*time.Second)
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("server error misclassified as timeout: %v", err)
	}
}

func TestOllamaGenerateServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	p := NewOllamaProvider(server.URL, "llama3.2", 5*time.Second)
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Generate error = %v, want ErrUnavailable", err)
	}
}

func TestOllamaGenerateTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	p := NewOllamaProvider(server.URL, "llama3.2", 50*time.Millisecond)
	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Generate error = %v, want ErrTimeout", err)
	}
}
