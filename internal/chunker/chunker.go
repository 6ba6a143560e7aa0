// Package chunker partitions document content into overlapping
// fixed-size windows. Computation is deterministic: the same content
// and settings always produce the same chunk sequence.
package chunker

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/linepos"
)

// Chunk is a contiguous content window with derived line bounds.
// Offsets are 0-based character positions into the document content,
// End exclusive. Line numbers are 1-based.
type Chunk struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Length    int    `json:"length"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
	Content   string `json:"content,omitempty"`
}

// Meta returns a copy of the chunk with the content field stripped.
func (c Chunk) Meta() Chunk {
	c.Content = ""
	return c
}

// Compute splits content into chunks of at most size characters,
// consecutive chunks overlapping by overlap characters. The step
// (size - overlap) must be positive; callers validate that.
//
// The tail-merge check runs after each step advance: when the
// remaining tail is positive but shorter than size/4, the last emitted
// chunk is extended to the end of the content instead of emitting a
// tiny final chunk.
func Compute(content string, size, overlap int) []Chunk {
	chunks := []Chunk{}
	step := size - overlap
	start := 0

	for start < len(content) {
		end := start + size
		if end > len(content) {
			end = len(content)
		}

		lineStart := linepos.Line(content, start)
		lineEnd := lineStart
		if end > start {
			lineEnd = linepos.Line(content, end-1)
		}

		chunks = append(chunks, Chunk{
			ID:        fmt.Sprintf("chunk_%03d", len(chunks)),
			Index:     len(chunks),
			Start:     start,
			End:       end,
			Length:    end - start,
			LineStart: lineStart,
			LineEnd:   lineEnd,
			Content:   content[start:end],
		})

		start += step

		if len(content)-start < size/4 && start < len(content) {
			last := &chunks[len(chunks)-1]
			last.End = len(content)
			last.Length = last.End - last.Start
			last.Content = content[last.Start:last.End]
			last.LineEnd = strings.Count(content, "\n") + 1
			break
		}
	}

	return chunks
}
