package rpc

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
)

// InitParams configures document loading. Omitted chunk settings fall
// back to the configured defaults.
type InitParams struct {
	DocumentPath string `json:"documentPath"`
	ChunkSize    *int   `json:"chunkSize"`
	ChunkOverlap *int   `json:"chunkOverlap"`
}

// Validate validates the init parameters.
func (p InitParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DocumentPath, validation.Required),
		validation.Field(&p.ChunkSize, validation.Min(1)),
		validation.Field(&p.ChunkOverlap, validation.Min(0)),
	)
}

// PeekParams selects a content range by character offsets.
type PeekParams struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// Validate validates the peek parameters.
func (p PeekParams) Validate() error { return nil }

// GrepParams configures a regex search.
type GrepParams struct {
	Pattern      string `json:"pattern"`
	MaxMatches   *int   `json:"maxMatches"`
	ContextLines *int   `json:"contextLines"`
}

// Validate validates the grep parameters.
func (p GrepParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Pattern, validation.Required),
		validation.Field(&p.MaxMatches, validation.Min(1)),
		validation.Field(&p.ContextLines, validation.Min(0)),
	)
}

// GetChunksParams controls chunk listing.
type GetChunksParams struct {
	IncludeContent bool `json:"includeContent"`
}

// Validate validates the get_chunks parameters.
func (p GetChunksParams) Validate() error { return nil }

// GetChunkParams selects a single chunk. The index is a pointer so
// that absence is distinguishable from index 0.
type GetChunkParams struct {
	Index *int `json:"index"`
}

// Validate validates the get_chunk parameters.
func (p GetChunkParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Index, validation.NotNil),
	)
}

// AddBufferParams appends a snippet. Content may be empty but must be
// present, hence the pointer.
type AddBufferParams struct {
	Content *string `json:"content"`
	Label   *string `json:"label"`
}

// Validate validates the add_buffer parameters.
func (p AddBufferParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Content, validation.NotNil),
	)
}

// GetBuffersParams has no fields; get_buffers takes no parameters.
type GetBuffersParams struct{}

// Validate validates the get_buffers parameters.
func (p GetBuffersParams) Validate() error { return nil }

// QueryParams carries the free-form query text.
type QueryParams struct {
	Query string `json:"query"`
}

// Validate validates the query parameters.
func (p QueryParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Query, validation.Required),
	)
}

// EvalParams names a bounded operation and its arguments.
type EvalParams struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// Validate validates the eval parameters.
func (p EvalParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Op, validation.Required),
	)
}

// SearchChunksParams configures a full-text chunk search.
type SearchChunksParams struct {
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

// Validate validates the search_chunks parameters.
func (p SearchChunksParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Query, validation.Required),
		validation.Field(&p.Limit, validation.Min(1)),
	)
}

// decodeParams unmarshals raw params into a typed struct and runs its
// validation. Absent params decode to the zero value.
func decodeParams[T interface{ Validate() error }](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
	}
	return p, nil
}
