package embeddings

import (
	"fmt"
	"os"

	"github.com/docqa/docqa/internal/config"
)

// NewEmbedder creates the embedding backend selected by the config.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.EmbeddingOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaEmbedder(baseURL, cfg.Model, cfg.Dimensions), nil

	case config.EmbeddingOpenAI:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedding.base_url is required for the openai provider")
		}
		// Local OpenAI-compatible servers accept any key.
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = "docqa"
		}
		return NewOpenAIEmbedder(cfg.BaseURL, apiKey, cfg.Model, cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
