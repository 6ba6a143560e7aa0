package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineSize caps a single request line.
const maxLineSize = 1 << 20

// Server runs the synchronous request/response loop: read one line,
// process it fully, write one response line, repeat. No request
// overlaps another.
type Server struct {
	dispatcher *Dispatcher
	in         io.Reader
	out        io.Writer
	logger     *slog.Logger
}

// NewServer creates a protocol server reading requests from in and
// writing responses to out.
func NewServer(dispatcher *Dispatcher, in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	return &Server{dispatcher: dispatcher, in: in, out: out, logger: logger}
}

// Run processes requests until a shutdown request has been answered,
// the input reaches EOF, or ctx is cancelled between requests.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	w := bufio.NewWriter(s.out)
	enc := json.NewEncoder(w)

	s.logger.Info("worker ready, reading requests")

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp := errorResponse(nil, CodeParse, fmt.Sprintf("parse error: %v", err))
			if werr := writeResponse(enc, w, resp); werr != nil {
				return werr
			}
			continue
		}

		resp := s.dispatcher.Dispatch(req)
		if err := writeResponse(enc, w, resp); err != nil {
			return err
		}

		if req.Method == "shutdown" && resp.Error == nil {
			s.logger.Info("shutdown requested, stopping")
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	s.logger.Info("input closed, stopping")
	return nil
}

// writeResponse emits exactly one JSON line and flushes it so the
// host sees the response before the next request is read.
func writeResponse(enc *json.Encoder, w *bufio.Writer, resp Response) error {
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return w.Flush()
}
