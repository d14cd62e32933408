package bridge

import (
	"encoding/json"
	"errors"

	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/extract"
	"github.com/docqa/docqa/internal/llm"
	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/internal/vectordb"
)

// Request is one inbound command line. ID is optional; when set it is
// echoed on the response so the caller can correlate concurrent
// commands.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers exactly one request.
type Response struct {
	ID    string     `json:"id,omitempty"`
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *WireError `json:"error,omitempty"`
}

// WireError carries a machine-readable kind alongside the message so
// the caller can render a specific failure instead of a generic one.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is an asynchronous notification. Events are not responses to
// any single request; callers correlate them by document name.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Wire error kinds.
const (
	KindParseFailure         = "parse_failure"
	KindEmbeddingUnavailable = "embedding_unavailable"
	KindGenerationTimeout    = "generation_timeout"
	KindGenerationFailure    = "generation_failure"
	KindTranscriptionFailure = "transcription_failure"
	KindIndexCorrupt         = "index_corrupt"
	KindInvalidRequest       = "invalid_request"
	KindUnknownCommand       = "unknown_command"
	KindInternal             = "internal"
)

// errInvalidRequest marks a caller mistake: malformed JSON, missing or
// badly typed params.
var errInvalidRequest = errors.New("invalid request")

// errUnknownCommand marks a command the bridge does not implement.
var errUnknownCommand = errors.New("unknown command")

// errTranscription marks a failed voice transcription.
var errTranscription = errors.New("transcription failed")

// errorKind maps an error chain to its wire kind. Timeout is checked
// before the generation sentinel because a timed-out generation
// carries both.
func errorKind(err error) string {
	switch {
	case errors.Is(err, errInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, errUnknownCommand):
		return KindUnknownCommand
	case errors.Is(err, embeddings.ErrUnavailable):
		return KindEmbeddingUnavailable
	case errors.Is(err, llm.ErrTimeout):
		return KindGenerationTimeout
	case errors.Is(err, rag.ErrGeneration), errors.Is(err, llm.ErrUnavailable):
		return KindGenerationFailure
	case errors.Is(err, errTranscription):
		return KindTranscriptionFailure
	case errors.Is(err, vectordb.ErrCorrupt):
		return KindIndexCorrupt
	case errors.Is(err, extract.ErrParse), errors.Is(err, extract.ErrUnsupported):
		return KindParseFailure
	default:
		return KindInternal
	}
}

// errorResponse wraps an error into a response for the given request.
func errorResponse(id string, err error) Response {
	return Response{
		ID: id,
		Error: &WireError{
			Kind:    errorKind(err),
			Message: err.Error(),
		},
	}
}
