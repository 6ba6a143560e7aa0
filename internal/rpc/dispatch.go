package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/evalx"
	"github.com/starford/ansuz/internal/session"
)

// ShutdownResult acknowledges a shutdown request.
type ShutdownResult struct {
	Status string `json:"status"`
}

type handlerFunc func(params json.RawMessage) (any, error)

// Dispatcher routes decoded requests to their handlers and translates
// results and failures into response envelopes. The method table is
// explicit: adding a method is a compile-time-checked addition here.
type Dispatcher struct {
	sess     *session.Session
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher builds the method table around the given session.
func NewDispatcher(sess *session.Session, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{sess: sess, logger: logger}
	d.handlers = map[string]handlerFunc{
		"init":          d.handleInit,
		"peek":          d.handlePeek,
		"grep":          d.handleGrep,
		"get_chunks":    d.handleGetChunks,
		"get_chunk":     d.handleGetChunk,
		"add_buffer":    d.handleAddBuffer,
		"get_buffers":   d.handleGetBuffers,
		"query":         d.handleQuery,
		"eval":          d.handleEval,
		"search_chunks": d.handleSearchChunks,
		"status":        d.handleStatus,
		"shutdown":      d.handleShutdown,
	}
	return d
}

// Dispatch handles one request and always produces a response
// envelope; handler failures never escape as panics or crashes.
func (d *Dispatcher) Dispatch(req Request) Response {
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "missing method")
	}
	handler, ok := d.handlers[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, "unknown method: "+req.Method)
	}

	result, err := handler(req.Params)
	if err != nil {
		code := codeFor(err)
		if code == CodeInternal {
			d.logger.Error("request failed",
				slog.String("method", req.Method),
				slog.String("error", err.Error()))
		}
		return errorResponse(req.ID, code, err.Error())
	}
	return resultResponse(req.ID, result)
}

// codeFor maps the application error taxonomy onto wire codes.
// Anything unrecognized is an internal error.
func codeFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, apperr.ErrMethodNotFound):
		return CodeMethodNotFound
	case errors.Is(err, apperr.ErrInvalidParams):
		return CodeInvalidParams
	case errors.Is(err, apperr.ErrNotInitialized):
		return CodeNotInitialized
	case errors.Is(err, apperr.ErrFileNotFound):
		return CodeFileNotFound
	case errors.Is(err, apperr.ErrInvalidRange):
		return CodeInvalidRange
	default:
		return CodeInternal
	}
}

func (d *Dispatcher) handleInit(raw json.RawMessage) (any, error) {
	p, err := decodeParams[InitParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Init(p.DocumentPath, p.ChunkSize, p.ChunkOverlap)
}

func (d *Dispatcher) handlePeek(raw json.RawMessage) (any, error) {
	p, err := decodeParams[PeekParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Peek(p.Start, p.End)
}

func (d *Dispatcher) handleGrep(raw json.RawMessage) (any, error) {
	p, err := decodeParams[GrepParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Grep(p.Pattern, p.MaxMatches, p.ContextLines)
}

func (d *Dispatcher) handleGetChunks(raw json.RawMessage) (any, error) {
	p, err := decodeParams[GetChunksParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Chunks(p.IncludeContent)
}

func (d *Dispatcher) handleGetChunk(raw json.RawMessage) (any, error) {
	p, err := decodeParams[GetChunkParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Chunk(*p.Index)
}

func (d *Dispatcher) handleAddBuffer(raw json.RawMessage) (any, error) {
	p, err := decodeParams[AddBufferParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.AddBuffer(*p.Content, p.Label)
}

func (d *Dispatcher) handleGetBuffers(raw json.RawMessage) (any, error) {
	if _, err := decodeParams[GetBuffersParams](raw); err != nil {
		return nil, err
	}
	return d.sess.Buffers()
}

func (d *Dispatcher) handleQuery(raw json.RawMessage) (any, error) {
	p, err := decodeParams[QueryParams](raw)
	if err != nil {
		return nil, err
	}
	return d.sess.Query(p.Query)
}

func (d *Dispatcher) handleEval(raw json.RawMessage) (any, error) {
	p, err := decodeParams[EvalParams](raw)
	if err != nil {
		return nil, err
	}
	return evalx.Apply(d.sess, p.Op, p.Args)
}

func (d *Dispatcher) handleSearchChunks(raw json.RawMessage) (any, error) {
	p, err := decodeParams[SearchChunksParams](raw)
	if err != nil {
		return nil, err
	}
	limit := 0
	if p.Limit != nil {
		limit = *p.Limit
	}
	return d.sess.SearchChunks(p.Query, limit)
}

func (d *Dispatcher) handleStatus(raw json.RawMessage) (any, error) {
	return d.sess.Status(), nil
}

func (d *Dispatcher) handleShutdown(raw json.RawMessage) (any, error) {
	return &ShutdownResult{Status: "shutting_down"}, nil
}
