package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const maxBatchSize = 100

// OpenAIEmbedder generates embeddings through the OpenAI wire protocol.
// It is pointed at a local OpenAI-compatible server (llama-server,
// LM Studio, Ollama's /v1 endpoint); the API key is optional and only
// forwarded for servers that enforce one.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder speaking to baseURL.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return "openai/" + e.model
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed generates embeddings in batches of up to maxBatchSize texts,
// preserving input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, classifyOpenAIError(err)
		}

		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding server returned %d embeddings, expected %d", len(resp.Data), len(batch))
		}

		for _, emb := range resp.Data {
			if len(emb.Embedding) != e.dimensions {
				return nil, fmt.Errorf("embedding model %s returned %d dimensions, expected %d",
					e.model, len(emb.Embedding), e.dimensions)
			}
			allEmbeddings = append(allEmbeddings, emb.Embedding)
		}
	}

	return allEmbeddings, nil
}

// classifyOpenAIError maps transport and server faults onto
// ErrUnavailable so callers can distinguish capability loss from bad
// input.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusNotFound || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("embedding request rejected: %w", err)
	}
	// No typed API error means the server itself was unreachable.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
