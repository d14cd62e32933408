package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/embeddings"
	"github.com/docqa/docqa/internal/walker"
)

type initData struct {
	Ready     bool                `json:"ready"`
	Documents []docstore.Document `json:"documents"`
}

type addParams struct {
	Paths []string `json:"paths"`
}

type documentsData struct {
	Documents []docstore.Document `json:"documents"`
}

type askParams struct {
	Question string `json:"question"`
}

type removeParams struct {
	Name string `json:"name"`
}

type removeData struct {
	OK bool `json:"ok"`
}

type voiceParams struct {
	AudioPath string `json:"audio_path"`
	AudioB64  string `json:"audio_b64"`
}

type voiceData struct {
	Text string `json:"text"`
}

type progressData struct {
	Document string  `json:"document"`
	Progress float64 `json:"progress"`
}

type completeData struct {
	Document string `json:"document"`
	Chunks   int    `json:"chunks"`
}

// handleInit reports readiness and the current document list. It is
// idempotent; front-ends call it once at startup.
func (b *Bridge) handleInit(ctx context.Context) (any, error) {
	docs, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return initData{Ready: true, Documents: docs}, nil
}

// handleAddDocuments ingests the given paths, pushing progress and
// completion events while the response is still pending. Per-document
// failures land on that document's status; the response lists every
// outcome, so an unavailable embedding backend still answers ok.
func (b *Bridge) handleAddDocuments(ctx context.Context, raw json.RawMessage, emit func(Event)) (any, error) {
	var params addParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	if len(params.Paths) == 0 {
		return nil, fmt.Errorf("%w: paths is empty", errInvalidRequest)
	}

	paths, err := expandPaths(params.Paths)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no document files under the given paths", errInvalidRequest)
	}

	onProgress := func(document string, processed, total int) {
		progress := 1.0
		if total > 0 {
			progress = float64(processed) / float64(total)
		}
		emit(Event{Event: "indexing-progress", Data: progressData{
			Document: document,
			Progress: progress,
		}})
	}
	onDocument := func(doc docstore.Document) {
		if doc.Status != docstore.StatusIndexed {
			return
		}
		emit(Event{Event: "indexing-complete", Data: completeData{
			Document: doc.Name,
			Chunks:   doc.Chunks,
		}})
	}

	docs, err := b.store.AddFiles(ctx, paths, onProgress, onDocument)
	if err != nil && !errors.Is(err, embeddings.ErrUnavailable) {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return documentsData{Documents: docs}, nil
}

// handleAsk answers a question over the indexed corpus.
func (b *Bridge) handleAsk(ctx context.Context, raw json.RawMessage) (any, error) {
	var params askParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", errInvalidRequest)
	}
	return b.engine.Answer(ctx, question)
}

// handleRemoveDocument removes a document and its chunks. Removing an
// unknown name is a successful no-op.
func (b *Bridge) handleRemoveDocument(ctx context.Context, raw json.RawMessage) (any, error) {
	var params removeParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", errInvalidRequest)
	}

	if _, err := b.store.Remove(ctx, name); err != nil {
		return nil, err
	}
	return removeData{OK: true}, nil
}

// handleVoice transcribes recorded audio, given either a path to a
// recording or the bytes inline as base64.
func (b *Bridge) handleVoice(ctx context.Context, raw json.RawMessage) (any, error) {
	if b.transcriber == nil {
		return nil, fmt.Errorf("%w: voice input is not configured", errTranscription)
	}

	var params voiceParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}

	var audioData []byte
	switch {
	case params.AudioB64 != "":
		decoded, err := base64.StdEncoding.DecodeString(params.AudioB64)
		if err != nil {
			return nil, fmt.Errorf("%w: audio_b64 is not valid base64: %v", errInvalidRequest, err)
		}
		audioData = decoded
	case params.AudioPath != "":
		data, err := os.ReadFile(params.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading audio: %v", errTranscription, err)
		}
		audioData = data
	default:
		return nil, fmt.Errorf("%w: audio_path or audio_b64 is required", errInvalidRequest)
	}

	text, err := b.transcriber.Transcribe(ctx, audioData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTranscription, err)
	}
	return voiceData{Text: text}, nil
}

// handleGetDocuments returns the current document list.
func (b *Bridge) handleGetDocuments(ctx context.Context) (any, error) {
	docs, err := b.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return documentsData{Documents: docs}, nil
}

// unmarshalParams decodes the params object. Absent params decode as
// zero values so handlers report the specific missing field.
func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: bad params: %v", errInvalidRequest, err)
	}
	return nil
}

// expandPaths resolves directory and glob arguments to document files.
// Plain paths pass through untouched, existing or not, so a bad path
// fails on its own document record instead of aborting the batch.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		expandable := isPattern(arg)
		if !expandable {
			if info, err := os.Stat(arg); err == nil && info.IsDir() {
				expandable = true
			}
		}
		if !expandable {
			paths = append(paths, arg)
			continue
		}

		files, err := walker.Discover([]string{arg}, walker.Config{})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

// isPattern reports whether the argument contains glob metacharacters.
func isPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}
