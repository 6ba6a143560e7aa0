// Package session holds the worker's single-document state: the
// loaded document, its chunk sequence, accumulated buffers, and the
// operations the RPC surface exposes over them. A session holds at
// most one document; re-initialization replaces everything wholesale.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/chunker"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linepos"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/search"
)

// Document is the loaded file. Immutable once stored: re-init swaps
// the whole value, nothing mutates in place.
type Document struct {
	Path     string
	Content  string
	Lines    []string
	Checksum string
	LoadedAt string // ISO-8601 UTC
}

// Buffer is an ad hoc labeled snippet captured during the session.
// Buffers are append-only and cleared only by re-init.
type Buffer struct {
	Index     int     `json:"index"`
	Content   string  `json:"content"`
	Label     *string `json:"label"`
	CreatedAt string  `json:"createdAt"`
}

// Defaults are the settings applied when a request omits them.
type Defaults struct {
	ChunkSize    int
	ChunkOverlap int
	MaxMatches   int
	ContextLines int
	QueryTopK    int
	PreviewLen   int
}

// Session is the aggregate state of the worker process. All access
// goes through the mutex: the protocol loop is strictly synchronous,
// but the staleness watcher and the optional debug HTTP surface read
// concurrently.
type Session struct {
	mu       sync.RWMutex
	defaults Defaults
	idx      index.ChunkIndex // nil when the chunk index is disabled
	logger   *slog.Logger

	doc         *Document
	chunks      []chunker.Chunk
	buffers     []Buffer
	initialized bool
	stale       bool

	onLoad func(path, checksum string)
}

// New creates an empty session. idx may be nil to disable the
// full-text chunk index.
func New(defaults Defaults, idx index.ChunkIndex, logger *slog.Logger) *Session {
	return &Session{defaults: defaults, idx: idx, logger: logger}
}

// SetOnLoad registers a callback invoked after every successful init
// with the loaded path and its checksum. Used to retarget the
// staleness watcher.
func (s *Session) SetOnLoad(fn func(path, checksum string)) {
	s.onLoad = fn
}

// InitResult is the response payload of a successful init.
type InitResult struct {
	Status        string `json:"status"`
	DocumentPath  string `json:"documentPath"`
	ContentLength int    `json:"contentLength"`
	LineCount     int    `json:"lineCount"`
	ChunkCount    int    `json:"chunkCount"`
	LoadedAt      string `json:"loadedAt"`
}

// Init loads the document at path and replaces all session state:
// prior document, chunks, and buffers are discarded. Nil chunkSize or
// chunkOverlap fall back to the configured defaults.
func (s *Session) Init(path string, chunkSize, chunkOverlap *int) (*InitResult, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: documentPath is required", apperr.ErrInvalidParams)
	}

	size := s.defaults.ChunkSize
	if chunkSize != nil {
		size = *chunkSize
	}
	overlap := s.defaults.ChunkOverlap
	if chunkOverlap != nil {
		overlap = *chunkOverlap
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunkSize must be positive", apperr.ErrInvalidParams)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunkOverlap must be in [0, chunkSize)", apperr.ErrInvalidParams)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}

	content := string(data)
	doc := &Document{
		Path:     path,
		Content:  content,
		Lines:    strings.Split(content, "\n"),
		Checksum: checksum.Sum(data),
		LoadedAt: timestamp(),
	}
	chunks := chunker.Compute(content, size, overlap)

	s.mu.Lock()
	s.doc = doc
	s.chunks = chunks
	s.buffers = nil
	s.initialized = true
	s.stale = false
	s.mu.Unlock()

	if s.idx != nil {
		if err := s.idx.Rebuild(chunks); err != nil {
			s.logger.Warn("chunk index rebuild failed", slog.String("error", err.Error()))
		}
	}
	if s.onLoad != nil {
		s.onLoad(path, doc.Checksum)
	}

	s.logger.Info("document loaded",
		slog.String("path", path),
		slog.Int("content_length", len(content)),
		slog.Int("chunks", len(chunks)))

	return &InitResult{
		Status:        "initialized",
		DocumentPath:  path,
		ContentLength: len(content),
		LineCount:     len(doc.Lines),
		ChunkCount:    len(chunks),
		LoadedAt:      doc.LoadedAt,
	}, nil
}

// PeekResult is a content slice with its derived line bounds.
type PeekResult struct {
	Content   string `json:"content"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Length    int    `json:"length"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
}

// Peek returns content[start:end) after clamping start to 0 and end to
// the content length. Nil start defaults to 0, nil end to the content
// length. A range that is empty after clamping is an error.
func (s *Session) Peek(start, end *int) (*PeekResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}

	content := s.doc.Content
	st := 0
	if start != nil {
		st = *start
	}
	en := len(content)
	if end != nil {
		en = *end
	}
	if st < 0 {
		st = 0
	}
	if en > len(content) {
		en = len(content)
	}
	if st >= en {
		return nil, fmt.Errorf("%w: %d-%d", apperr.ErrInvalidRange, st, en)
	}

	lineStart := linepos.Line(content, st)
	lineEnd := lineStart
	if en > 0 {
		lineEnd = linepos.Line(content, en-1)
	}

	return &PeekResult{
		Content:   content[st:en],
		Start:     st,
		End:       en,
		Length:    en - st,
		LineStart: lineStart,
		LineEnd:   lineEnd,
	}, nil
}

// Grep searches the document for a regex pattern. Nil maxMatches and
// contextLines fall back to the configured defaults.
func (s *Session) Grep(pattern string, maxMatches, contextLines *int) (*search.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}

	mm := s.defaults.MaxMatches
	if maxMatches != nil {
		mm = *maxMatches
	}
	cl := s.defaults.ContextLines
	if contextLines != nil {
		cl = *contextLines
	}
	return search.Grep(s.doc.Content, s.doc.Lines, pattern, mm, cl)
}

// ChunksResult is the full chunk listing.
type ChunksResult struct {
	ChunkCount int             `json:"chunkCount"`
	Chunks     []chunker.Chunk `json:"chunks"`
}

// Chunks returns the chunk sequence. Unless includeContent is set,
// every chunk's content field is stripped.
func (s *Session) Chunks(includeContent bool) (*ChunksResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}

	chunks := make([]chunker.Chunk, len(s.chunks))
	for i, c := range s.chunks {
		if includeContent {
			chunks[i] = c
		} else {
			chunks[i] = c.Meta()
		}
	}
	return &ChunksResult{ChunkCount: len(chunks), Chunks: chunks}, nil
}

// ChunkResult wraps a single chunk.
type ChunkResult struct {
	Chunk chunker.Chunk `json:"chunk"`
}

// Chunk returns the chunk at idx including its content.
func (s *Session) Chunk(idx int) (*ChunkResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}
	if idx < 0 || idx >= len(s.chunks) {
		return nil, fmt.Errorf("%w: chunk index out of range: %d", apperr.ErrInvalidParams, idx)
	}
	return &ChunkResult{Chunk: s.chunks[idx]}, nil
}

// AddBufferResult reports the assigned index and new total.
type AddBufferResult struct {
	BufferIndex int `json:"bufferIndex"`
	BufferCount int `json:"bufferCount"`
}

// AddBuffer appends a buffer at the next dense index. Content may be
// empty; label may be nil.
func (s *Session) AddBuffer(content string, label *string) (*AddBufferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}

	b := Buffer{
		Index:     len(s.buffers),
		Content:   content,
		Label:     label,
		CreatedAt: timestamp(),
	}
	s.buffers = append(s.buffers, b)
	return &AddBufferResult{BufferIndex: b.Index, BufferCount: len(s.buffers)}, nil
}

// BuffersResult is the ordered buffer listing.
type BuffersResult struct {
	BufferCount int      `json:"bufferCount"`
	Buffers     []Buffer `json:"buffers"`
}

// Buffers returns all buffers in assignment order.
func (s *Session) Buffers() (*BuffersResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}

	buffers := make([]Buffer, len(s.buffers))
	copy(buffers, s.buffers)
	return &BuffersResult{BufferCount: len(buffers), Buffers: buffers}, nil
}

// Query ranks chunks against q by keyword overlap.
func (s *Session) Query(q string) (*query.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, apperr.ErrNotInitialized
	}
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalidParams)
	}
	return query.Rank(q, s.chunks, s.defaults.QueryTopK, s.defaults.PreviewLen), nil
}

// SearchChunksResult is the full-text chunk search payload.
type SearchChunksResult struct {
	Query    string      `json:"query"`
	HitCount int         `json:"hitCount"`
	Hits     []index.Hit `json:"hits"`
}

// SearchChunks runs a full-text search over the chunk index.
func (s *Session) SearchChunks(q string, limit int) (*SearchChunksResult, error) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized {
		return nil, apperr.ErrNotInitialized
	}
	if s.idx == nil {
		return nil, fmt.Errorf("%w: chunk index is disabled", apperr.ErrInvalidParams)
	}

	hits, err := s.idx.Search(q, limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	return &SearchChunksResult{Query: q, HitCount: len(hits), Hits: hits}, nil
}

// StatusResult describes the current session state. Available before
// init, unlike every other document operation.
type StatusResult struct {
	Initialized   bool   `json:"initialized"`
	DocumentPath  string `json:"documentPath,omitempty"`
	ContentLength int    `json:"contentLength"`
	LineCount     int    `json:"lineCount"`
	ChunkCount    int    `json:"chunkCount"`
	BufferCount   int    `json:"bufferCount"`
	LoadedAt      string `json:"loadedAt,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
	Stale         bool   `json:"stale"`
}

// Status reports the session state without requiring initialization.
func (s *Session) Status() *StatusResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := &StatusResult{
		Initialized: s.initialized,
		ChunkCount:  len(s.chunks),
		BufferCount: len(s.buffers),
		Stale:       s.stale,
	}
	if s.doc != nil {
		res.DocumentPath = s.doc.Path
		res.ContentLength = len(s.doc.Content)
		res.LineCount = len(s.doc.Lines)
		res.LoadedAt = s.doc.LoadedAt
		res.Checksum = s.doc.Checksum
	}
	return res
}

// MarkStale flags the loaded document as changed on disk. The session
// content itself never changes until the next init.
func (s *Session) MarkStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Snapshot returns the loaded content and line sequence.
func (s *Session) Snapshot() (content string, lines []string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return "", nil, apperr.ErrNotInitialized
	}
	return s.doc.Content, s.doc.Lines, nil
}

// ChunkSlice returns the current chunk sequence.
func (s *Session) ChunkSlice() []chunker.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
