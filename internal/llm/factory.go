package llm

import (
	"fmt"
	"os"

	"github.com/docqa/docqa/internal/config"
)

// NewProvider creates the generation provider selected by the config.
func NewProvider(cfg config.GenerationConfig) (Provider, error) {
	switch cfg.Provider {
	case config.GenerationLlamaCpp:
		if cfg.Binary == "" {
			return nil, fmt.Errorf("generation.binary is required for the llamacpp provider")
		}
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("generation.model_path is required for the llamacpp provider")
		}
		return NewLlamaCppProvider(cfg.Binary, cfg.ModelPath, cfg.ContextSize, cfg.Threads, cfg.Timeout()), nil

	case config.GenerationOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout()), nil

	case config.GenerationOpenAI:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("generation.base_url is required for the openai provider")
		}
		// Local OpenAI-compatible servers accept any key.
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = "docqa"
		}
		return NewOpenAIProvider(cfg.BaseURL, apiKey, cfg.Model, cfg.Timeout()), nil

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}
