package config

// DefaultExcludes are glob patterns skipped during document discovery.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"**/~$*",
	"**/.DS_Store",
	"**/*.tmp",
}

// DefaultStopSequences terminate generation before the model starts
// hallucinating a follow-up question or more context.
var DefaultStopSequences = []string{"Question:", "Context:", "\n\n---"}

// DefaultMaxFileSize caps ingested files at 64 MB.
const DefaultMaxFileSize int64 = 64 << 20

// DefaultConfig returns a Config with sensible defaults for a fully
// local setup: Ollama for embeddings and a llama.cpp binary for
// generation. The data dir defaults to ~/.docqa resolved at load time.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "~/.docqa",
		Chunking: ChunkingConfig{
			MaxTokens:     500,
			OverlapTokens: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:   EmbeddingOllama,
			BaseURL:    "http://localhost:11434",
			Model:      "all-minilm",
			Dimensions: 384,
		},
		Generation: GenerationConfig{
			Provider:       GenerationLlamaCpp,
			Binary:         "llama-cli",
			MaxTokens:      512,
			Temperature:    0.3,
			TimeoutSeconds: 120,
			ContextSize:    4096,
			Threads:        4,
			Stop:           DefaultStopSequences,
		},
		Transcription: TranscriptionConfig{
			Binary:         "",
			TimeoutSeconds: 30,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.1,
		},
		Index: IndexConfig{
			Backend: IndexMemory,
		},
		Ingest: IngestConfig{
			MaxFileSize: DefaultMaxFileSize,
			Exclude:     DefaultExcludes,
		},
		Bridge: BridgeConfig{
			Workers: 4,
		},
	}
}
