package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docqa! Let's set up your private document collection.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Generation backend.
	genPrompt := promptui.Select{
		Label: "Select generation backend",
		Items: []string{
			"llamacpp — llama.cpp CLI binary (fully offline)",
			"ollama   — local Ollama server",
			"openai   — OpenAI-compatible local server (llama-server, LM Studio)",
		},
	}
	genIdx, _, err := genPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("generation backend selection: %w", err)
	}
	providers := []GenerationProvider{GenerationLlamaCpp, GenerationOllama, GenerationOpenAI}
	cfg.Generation.Provider = providers[genIdx]

	switch cfg.Generation.Provider {
	case GenerationLlamaCpp:
		binPrompt := promptui.Prompt{
			Label:   "Path to llama.cpp binary",
			Default: "llama-cli",
		}
		if cfg.Generation.Binary, err = binPrompt.Run(); err != nil {
			return nil, fmt.Errorf("binary path: %w", err)
		}
		modelPrompt := promptui.Prompt{
			Label: "Path to GGUF model file",
		}
		if cfg.Generation.ModelPath, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model path: %w", err)
		}
	case GenerationOllama:
		cfg.Generation.BaseURL = "http://localhost:11434"
		modelPrompt := promptui.Prompt{
			Label:   "Ollama model name",
			Default: "llama3.2",
		}
		if cfg.Generation.Model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model name: %w", err)
		}
	case GenerationOpenAI:
		urlPrompt := promptui.Prompt{
			Label:   "Base URL of the local OpenAI-compatible server",
			Default: "http://localhost:8080/v1",
		}
		if cfg.Generation.BaseURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		modelPrompt := promptui.Prompt{
			Label:   "Model name",
			Default: "default",
		}
		if cfg.Generation.Model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model name: %w", err)
		}
	}

	// 2. Embedding backend.
	embPrompt := promptui.Select{
		Label: "Select embedding backend",
		Items: []string{
			"ollama — local Ollama server (all-minilm, nomic-embed-text)",
			"openai — OpenAI-compatible local server",
		},
	}
	embIdx, _, err := embPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding backend selection: %w", err)
	}
	if embIdx == 1 {
		cfg.Embedding.Provider = EmbeddingOpenAI
		cfg.Embedding.BaseURL = "http://localhost:8080/v1"
	}

	embModelPrompt := promptui.Prompt{
		Label:   "Embedding model name",
		Default: cfg.Embedding.Model,
	}
	if cfg.Embedding.Model, err = embModelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}

	dimPrompt := promptui.Prompt{
		Label:   "Embedding dimensions",
		Default: strconv.Itoa(cfg.Embedding.Dimensions),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	dimStr, err := dimPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding dimensions: %w", err)
	}
	cfg.Embedding.Dimensions, _ = strconv.Atoi(strings.TrimSpace(dimStr))

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	// 4. Optional voice input.
	voicePrompt := promptui.Prompt{
		Label:     "Enable voice input (requires llama.cpp multimodal binary)",
		IsConfirm: true,
	}
	if _, err := voicePrompt.Run(); err == nil {
		binPrompt := promptui.Prompt{
			Label:   "Path to multimodal binary",
			Default: "llama-mtmd-cli",
		}
		if cfg.Transcription.Binary, err = binPrompt.Run(); err != nil {
			return nil, fmt.Errorf("transcription binary: %w", err)
		}
		modelPrompt := promptui.Prompt{
			Label: "Path to audio model file",
		}
		if cfg.Transcription.ModelPath, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("transcription model: %w", err)
		}
		projPrompt := promptui.Prompt{
			Label: "Path to multimodal projector file",
		}
		if cfg.Transcription.ProjectorPath, err = projPrompt.Run(); err != nil {
			return nil, fmt.Errorf("projector path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
