// Package llm generates answer text from grounded prompts using a
// locally-running model backend.
package llm

import (
	"context"
	"errors"
)

// ErrTimeout marks a generation that exceeded its wall-clock limit.
// Subprocess backends kill the external process before returning it.
var ErrTimeout = errors.New("generation timed out")

// ErrUnavailable marks a generation backend that cannot be reached.
var ErrUnavailable = errors.New("generation backend unavailable")

// GenerateRequest contains the parameters for a single generation.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// GenerateResponse contains the generated text.
type GenerateResponse struct {
	Text string
}

// Provider defines the interface for generation backends.
type Provider interface {
	// Generate produces a completion for the request. The context
	// carries the hard timeout; implementations must stop work when it
	// expires and return an error wrapping ErrTimeout.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	// Name returns the name of this provider.
	Name() string
}
