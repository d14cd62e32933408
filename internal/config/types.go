package config

import (
	"path/filepath"
	"time"
)

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	EmbeddingOllama EmbeddingProvider = "ollama"
	EmbeddingOpenAI EmbeddingProvider = "openai"
)

// GenerationProvider identifies a text-generation backend.
type GenerationProvider string

const (
	GenerationLlamaCpp GenerationProvider = "llamacpp"
	GenerationOllama   GenerationProvider = "ollama"
	GenerationOpenAI   GenerationProvider = "openai"
)

// IndexBackend identifies a vector index implementation.
type IndexBackend string

const (
	IndexMemory  IndexBackend = "memory"
	IndexChromem IndexBackend = "chromem"
)

// Config is the top-level docqa configuration, corresponding to
// ~/.docqa/config.yml. All model endpoints are expected to be local;
// documents never leave the machine.
type Config struct {
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	Chunking      ChunkingConfig      `yaml:"chunking" koanf:"chunking"`
	Embedding     EmbeddingConfig     `yaml:"embedding" koanf:"embedding"`
	Generation    GenerationConfig    `yaml:"generation" koanf:"generation"`
	Transcription TranscriptionConfig `yaml:"transcription" koanf:"transcription"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" koanf:"retrieval"`
	Index         IndexConfig         `yaml:"index" koanf:"index"`
	Ingest        IngestConfig        `yaml:"ingest" koanf:"ingest"`
	Bridge        BridgeConfig        `yaml:"bridge" koanf:"bridge"`
}

// ChunkingConfig controls how extracted text is split before embedding.
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens" koanf:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens" koanf:"overlap_tokens"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider   EmbeddingProvider `yaml:"provider" koanf:"provider"`
	BaseURL    string            `yaml:"base_url" koanf:"base_url"`
	Model      string            `yaml:"model" koanf:"model"`
	Dimensions int               `yaml:"dimensions" koanf:"dimensions"`
}

// GenerationConfig selects and configures the text-generation backend.
// Binary/ModelPath apply to the llamacpp provider; BaseURL/Model apply to
// the ollama and openai-compatible providers.
type GenerationConfig struct {
	Provider       GenerationProvider `yaml:"provider" koanf:"provider"`
	Binary         string             `yaml:"binary" koanf:"binary"`
	ModelPath      string             `yaml:"model_path" koanf:"model_path"`
	BaseURL        string             `yaml:"base_url" koanf:"base_url"`
	Model          string             `yaml:"model" koanf:"model"`
	MaxTokens      int                `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature    float64            `yaml:"temperature" koanf:"temperature"`
	TimeoutSeconds int                `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	ContextSize    int                `yaml:"context_size" koanf:"context_size"`
	Threads        int                `yaml:"threads" koanf:"threads"`
	Stop           []string           `yaml:"stop" koanf:"stop"`
}

// Timeout returns the hard wall-clock limit for a single generation.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// TranscriptionConfig configures the audio transcription runner.
// An empty Binary disables voice input.
type TranscriptionConfig struct {
	Binary         string `yaml:"binary" koanf:"binary"`
	ModelPath      string `yaml:"model_path" koanf:"model_path"`
	ProjectorPath  string `yaml:"projector_path" koanf:"projector_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// Timeout returns the hard wall-clock limit for a single transcription.
func (t TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// RetrievalConfig controls retrieval and citation behavior. MinScore is
// the relevance floor: retrieved chunks scoring below it are never cited
// and never reach the generation prompt.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k" koanf:"top_k"`
	MinScore float64 `yaml:"min_score" koanf:"min_score"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend IndexBackend `yaml:"backend" koanf:"backend"`
}

// IngestConfig controls document discovery during ingestion.
type IngestConfig struct {
	MaxFileSize int64    `yaml:"max_file_size" koanf:"max_file_size"`
	Exclude     []string `yaml:"exclude" koanf:"exclude"`
}

// BridgeConfig controls the command bridge worker pool.
type BridgeConfig struct {
	Workers int `yaml:"workers" koanf:"workers"`
}

// DatabasePath returns the location of the document metadata database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "documents.db")
}

// IndexPath returns the location of the vector index snapshot.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index.bin")
}

// ChromemPath returns the export file for the chromem backend.
func (c *Config) ChromemPath() string {
	return filepath.Join(c.DataDir, "chromem.gob.gz")
}
