// Package audio turns recorded speech into text using a locally-run
// llama.cpp multimodal model.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/docqa/docqa/internal/config"
)

// Transcriber converts recorded audio into text. Empty or
// unintelligible audio yields "" with a nil error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NewTranscriber creates the transcription runner, or nil when voice
// input is not configured.
func NewTranscriber(cfg config.TranscriptionConfig) Transcriber {
	if cfg.Binary == "" {
		return nil
	}
	return NewLlamaTranscriber(cfg.Binary, cfg.ModelPath, cfg.ProjectorPath, cfg.Timeout())
}

// LlamaTranscriber runs the llama.cpp multimodal CLI out of process.
// Audio bytes are written to a temp WAV file that is removed on every
// exit path.
type LlamaTranscriber struct {
	binary        string
	modelPath     string
	projectorPath string
	timeout       time.Duration
}

// NewLlamaTranscriber creates a transcription runner.
func NewLlamaTranscriber(binary, modelPath, projectorPath string, timeout time.Duration) *LlamaTranscriber {
	return &LlamaTranscriber{
		binary:        binary,
		modelPath:     modelPath,
		projectorPath: projectorPath,
		timeout:       timeout,
	}
}

func (t *LlamaTranscriber) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	wavFile, err := os.CreateTemp("", "docqa-voice-*.wav")
	if err != nil {
		return "", fmt.Errorf("creating audio temp file: %w", err)
	}
	wavPath := wavFile.Name()
	defer os.Remove(wavPath)

	if _, err := wavFile.Write(audioData); err != nil {
		wavFile.Close()
		return "", fmt.Errorf("writing audio temp file: %w", err)
	}
	if err := wavFile.Close(); err != nil {
		return "", fmt.Errorf("closing audio temp file: %w", err)
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := []string{
		"-m", t.modelPath,
		"--mmproj", t.projectorPath,
		"-f", wavPath,
		"--temp", "0",
		"-n", "256",
		"--no-display-prompt",
	}
	cmd := exec.CommandContext(runCtx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("transcription timed out after %s", t.timeout)
	}
	if runErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 200 {
			detail = detail[:200] + "..."
		}
		return "", fmt.Errorf("transcription: %v: %s", runErr, detail)
	}

	return cleanTranscript(stdout.String()), nil
}

// noiseLine matches llama.cpp runtime chatter that leaks onto stdout.
var noiseLine = regexp.MustCompile(`^(llama_|ggml_|gguf_|clip_|mtmd_|main:|load_|print_info|system_info|sampling|encoding|decoding|srv )`)

// cleanTranscript drops runtime log lines and joins the remaining
// output into a single utterance.
func cleanTranscript(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || noiseLine.MatchString(trimmed) {
			continue
		}
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, " ")
}
