// Package bridge speaks the line-delimited JSON protocol a front-end
// uses to drive the engine, stdio in production. Each line is one
// self-contained record: a request, a response, or a pushed event.
// Mutating commands run one at a time in arrival order; read-only
// commands run on a bounded pool so a slow generation never stalls
// ingestion or unrelated queries.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/docqa/docqa/internal/audio"
	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/logger"
	"github.com/docqa/docqa/internal/rag"
)

const (
	// maxLineBytes bounds one protocol line. Voice requests may carry
	// inline base64 audio, so the ceiling is generous.
	maxLineBytes = 64 << 20

	// queueDepth bounds pending requests and outbound records before
	// the reader blocks.
	queueDepth = 64
)

// Options tunes the bridge.
type Options struct {
	// Workers bounds concurrently running read-only commands.
	// Values below 1 fall back to 4.
	Workers int
}

// Bridge dispatches front-end commands into the engine. Transcriber
// may be nil when voice input is not configured.
type Bridge struct {
	store       *docstore.Store
	engine      *rag.Engine
	transcriber audio.Transcriber
	workers     int
}

// New wires a bridge over the store, engine and optional transcriber.
func New(store *docstore.Store, engine *rag.Engine, transcriber audio.Transcriber, opts Options) *Bridge {
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	return &Bridge{
		store:       store,
		engine:      engine,
		transcriber: transcriber,
		workers:     workers,
	}
}

// Run reads requests from r until EOF and writes responses and events
// to w, one JSON record per line. All writes go through a single
// goroutine so lines are never interleaved. Run returns after every
// accepted request has been answered and flushed.
func (b *Bridge) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	out := make(chan any, queueDepth)

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		enc := json.NewEncoder(w)
		for record := range out {
			if err := enc.Encode(record); err != nil {
				logger.Error("bridge write: %v", err)
			}
		}
	}()

	emit := func(ev Event) { out <- ev }

	mutations := make(chan Request, queueDepth)
	reads := make(chan Request, queueDepth)

	var handlerWG sync.WaitGroup

	// Index mutation is single-writer: one goroutine drains the
	// mutation queue in arrival order.
	handlerWG.Add(1)
	go func() {
		defer handlerWG.Done()
		for req := range mutations {
			out <- b.dispatch(ctx, req, emit)
		}
	}()

	for i := 0; i < b.workers; i++ {
		handlerWG.Add(1)
		go func() {
			defer handlerWG.Done()
			for req := range reads {
				out <- b.dispatch(ctx, req, emit)
			}
		}()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			out <- errorResponse("", fmt.Errorf("%w: %v", errInvalidRequest, err))
			continue
		}
		if req.Command == "" {
			out <- errorResponse(req.ID, fmt.Errorf("%w: command is empty", errInvalidRequest))
			continue
		}

		if isMutation(req.Command) {
			mutations <- req
		} else {
			reads <- req
		}
	}
	readErr := scanner.Err()

	// EOF: let in-flight work drain, then flush and stop the writer.
	close(mutations)
	close(reads)
	handlerWG.Wait()
	close(out)
	writerWG.Wait()

	if readErr != nil {
		return fmt.Errorf("reading commands: %w", readErr)
	}
	return nil
}

// isMutation reports whether a command goes through the single-writer
// queue. Everything else is read-only against an index snapshot.
func isMutation(command string) bool {
	switch command {
	case "add_documents", "remove_document":
		return true
	}
	return false
}

// dispatch routes one request to its handler and shapes the response.
// Handlers return errors, never panic, so a bad request cannot take
// the bridge down.
func (b *Bridge) dispatch(ctx context.Context, req Request, emit func(Event)) Response {
	data, err := b.handle(ctx, req, emit)
	if err != nil {
		logger.Debug("bridge %s: %v", req.Command, err)
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, OK: true, Data: data}
}

func (b *Bridge) handle(ctx context.Context, req Request, emit func(Event)) (any, error) {
	switch req.Command {
	case "init":
		return b.handleInit(ctx)
	case "add_documents":
		return b.handleAddDocuments(ctx, req.Params, emit)
	case "ask":
		return b.handleAsk(ctx, req.Params)
	case "remove_document":
		return b.handleRemoveDocument(ctx, req.Params)
	case "voice_input", "record_and_transcribe":
		return b.handleVoice(ctx, req.Params)
	case "get_documents":
		return b.handleGetDocuments(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommand, req.Command)
	}
}
