package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// LlamaCppProvider runs the llama.cpp CLI out of process. The prompt is
// handed over through a temp file, never on the argument list, so it
// stays out of process listings and shell history.
type LlamaCppProvider struct {
	binary      string
	modelPath   string
	contextSize int
	threads     int
	timeout     time.Duration
}

// NewLlamaCppProvider creates a llama.cpp CLI provider.
func NewLlamaCppProvider(binary, modelPath string, contextSize, threads int, timeout time.Duration) *LlamaCppProvider {
	return &LlamaCppProvider{
		binary:      binary,
		modelPath:   modelPath,
		contextSize: contextSize,
		threads:     threads,
		timeout:     timeout,
	}
}

func (p *LlamaCppProvider) Name() string {
	return "llamacpp"
}

func (p *LlamaCppProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	promptFile, err := os.CreateTemp("", "docqa-prompt-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating prompt file: %w", err)
	}
	promptPath := promptFile.Name()
	defer os.Remove(promptPath)

	if _, err := promptFile.WriteString(req.Prompt); err != nil {
		promptFile.Close()
		return nil, fmt.Errorf("writing prompt file: %w", err)
	}
	if err := promptFile.Close(); err != nil {
		return nil, fmt.Errorf("closing prompt file: %w", err)
	}

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.binary, p.buildArgs(promptPath, req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, runErr)
		}
		return nil, fmt.Errorf("llama.cpp: %v: %s", runErr, trimForError(stderr.String()))
	}

	return &GenerateResponse{Text: cleanOutput(stdout.String(), req.Prompt, req.Stop)}, nil
}

func (p *LlamaCppProvider) buildArgs(promptPath string, req GenerateRequest) []string {
	args := []string{
		"-m", p.modelPath,
		"-f", promptPath,
		"-n", strconv.Itoa(req.MaxTokens),
		"--temp", strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		"--no-display-prompt",
		"--simple-io",
	}
	if p.contextSize > 0 {
		args = append(args, "-c", strconv.Itoa(p.contextSize))
	}
	if p.threads > 0 {
		args = append(args, "-t", strconv.Itoa(p.threads))
	}
	for _, stop := range req.Stop {
		args = append(args, "-r", stop)
	}
	return args
}

// cleanOutput strips the echoed prompt and anything after the first
// stop sequence from raw CLI output. Some llama.cpp builds echo the
// prompt even with --no-display-prompt.
func cleanOutput(raw, prompt string, stop []string) string {
	text := raw
	if prompt != "" {
		if idx := strings.Index(text, prompt); idx >= 0 {
			text = text[idx+len(prompt):]
		}
	}

	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if idx := strings.Index(text, s); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(text[:cut])
}

// trimForError shortens subprocess stderr for inclusion in an error.
func trimForError(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
