// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document-analysis operations as tools for LLM
// integration via stdio transport. It is an alternative serving mode
// to the line-delimited JSON-RPC worker loop.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/evalx"
	"github.com/starford/ansuz/internal/session"
)

// Server wraps the MCP server with the session tools.
type Server struct {
	mcp  *server.MCPServer
	sess *session.Session
}

// New creates a new MCP server with all document tools registered.
func New(sess *session.Session) *Server {
	s := &Server{sess: sess}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("init_document",
		mcp.WithDescription("Load a text document into the session, replacing any prior document, chunks, and buffers."),
		mcp.WithString("documentPath", mcp.Required(), mcp.Description("Path to the document file")),
		mcp.WithNumber("chunkSize", mcp.Description("Chunk window size in characters (default 4000)")),
		mcp.WithNumber("chunkOverlap", mcp.Description("Overlap between consecutive chunks (default 200)")),
	), s.initDocument)

	s.mcp.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Report session state: loaded document, chunk/buffer counts, staleness."),
	), s.status)

	s.mcp.AddTool(mcp.NewTool("peek",
		mcp.WithDescription("View a content range by character offsets."),
		mcp.WithNumber("start", mcp.Description("Start offset (default 0)")),
		mcp.WithNumber("end", mcp.Description("End offset, exclusive (default content length)")),
	), s.peek)

	s.mcp.AddTool(mcp.NewTool("grep",
		mcp.WithDescription("Search the document with a case-insensitive multi-line regex; returns matches with line context."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression")),
		mcp.WithNumber("maxMatches", mcp.Description("Maximum matches to return (default 10)")),
		mcp.WithNumber("contextLines", mcp.Description("Whole lines of context around each match (default 2)")),
	), s.grep)

	s.mcp.AddTool(mcp.NewTool("get_chunk",
		mcp.WithDescription("Fetch a single chunk, including its content, by index."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based chunk index")),
	), s.getChunk)

	s.mcp.AddTool(mcp.NewTool("query",
		mcp.WithDescription("Rank chunks against a free-form query by keyword overlap (placeholder scorer, not semantic retrieval)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query text")),
	), s.query)

	s.mcp.AddTool(mcp.NewTool("add_buffer",
		mcp.WithDescription("Append a labeled snippet to the session's buffer list."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Snippet text (may be empty)")),
		mcp.WithString("label", mcp.Description("Optional label")),
	), s.addBuffer)

	s.mcp.AddTool(mcp.NewTool("search_chunks",
		mcp.WithDescription("Full-text search over the chunk index."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum hits (default 20)")),
	), s.searchChunks)

	s.mcp.AddTool(mcp.NewTool("eval_op",
		mcp.WithDescription("Run a bounded expression op (slice, find, count, line, add_buffer) with JSON args."),
		mcp.WithString("op", mcp.Required(), mcp.Description("Operation name")),
		mcp.WithString("args", mcp.Description("JSON object of op arguments")),
	), s.evalOp)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func optionalInt(req mcp.CallToolRequest, key string) *int {
	v := req.GetInt(key, -1)
	if v < 0 {
		return nil
	}
	return &v
}

func (s *Server) initDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("documentPath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var size, overlap *int
	if v := req.GetInt("chunkSize", 0); v > 0 {
		size = &v
	}
	if v := req.GetInt("chunkOverlap", -1); v >= 0 {
		overlap = &v
	}
	res, err := s.sess.Init(path, size, overlap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) status(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sess.Status()), nil
}

func (s *Server) peek(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.sess.Peek(optionalInt(req, "start"), optionalInt(req, "end"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) grep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.Grep(pattern, optionalInt(req, "maxMatches"), optionalInt(req, "contextLines"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.Chunk(idx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) query(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.Query(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) addBuffer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var label *string
	if l := req.GetString("label", ""); l != "" {
		label = &l
	}
	res, err := s.sess.AddBuffer(content, label)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) searchChunks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.SearchChunks(q, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) evalOp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetString("args", "")
	res, err := evalx.Apply(s.sess, op, json.RawMessage(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}
