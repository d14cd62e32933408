// Package config loads, validates, and persists docqa configuration.
// Values come from defaults, overlaid by the YAML config file, overlaid
// by DOCQA_* environment variables (double underscore nests: for example
// DOCQA_RETRIEVAL__TOP_K maps to retrieval.top_k).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "DOCQA_"

// DefaultPath returns the default config file location, ~/.docqa/config.yml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docqa", "config.yml")
	}
	return filepath.Join(home, ".docqa", "config.yml")
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCQA_*). A missing file is not an
// error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: DOCQA_DATA_DIR -> data_dir,
	// DOCQA_EMBEDDING__MODEL -> embedding.model, etc.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Generation.ModelPath = expandHome(cfg.Generation.ModelPath)
	cfg.Transcription.ModelPath = expandHome(cfg.Transcription.ModelPath)
	cfg.Transcription.ProjectorPath = expandHome(cfg.Transcription.ProjectorPath)

	return cfg, nil
}

// Save writes the configuration to the given YAML file path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validEmbeddingProviders = map[EmbeddingProvider]bool{
	EmbeddingOllama: true,
	EmbeddingOpenAI: true,
}

var validGenerationProviders = map[GenerationProvider]bool{
	GenerationLlamaCpp: true,
	GenerationOllama:   true,
	GenerationOpenAI:   true,
}

var validIndexBackends = map[IndexBackend]bool{
	IndexMemory:  true,
	IndexChromem: true,
}

// Validate checks that the configuration contains usable values.
// Provider-specific requirements (model paths, reachable endpoints) are
// checked where the provider is constructed, not here.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("chunking.max_tokens must be positive")
	}
	if c.Chunking.OverlapTokens < 0 {
		return fmt.Errorf("chunking.overlap_tokens must be non-negative")
	}
	if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking.overlap_tokens (%d) must be smaller than chunking.max_tokens (%d)",
			c.Chunking.OverlapTokens, c.Chunking.MaxTokens)
	}

	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of ollama, openai", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}

	if !validGenerationProviders[c.Generation.Provider] {
		return fmt.Errorf("invalid generation.provider %q: must be one of llamacpp, ollama, openai", c.Generation.Provider)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	if c.Generation.Temperature < 0 {
		return fmt.Errorf("generation.temperature must be non-negative")
	}
	if c.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("generation.timeout_seconds must be positive")
	}

	if c.Transcription.TimeoutSeconds <= 0 {
		return fmt.Errorf("transcription.timeout_seconds must be positive")
	}

	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1")
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be within [-1, 1]")
	}

	if !validIndexBackends[c.Index.Backend] {
		return fmt.Errorf("invalid index.backend %q: must be one of memory, chromem", c.Index.Backend)
	}

	if c.Ingest.MaxFileSize <= 0 {
		return fmt.Errorf("ingest.max_file_size must be positive")
	}

	if c.Bridge.Workers < 1 {
		return fmt.Errorf("bridge.workers must be at least 1")
	}

	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
