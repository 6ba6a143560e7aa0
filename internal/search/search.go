// Package search implements regex search over document content with
// whole-line context windows around each match.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/linepos"
)

// Match is a single pattern occurrence. Start/End are 0-based
// character offsets (End exclusive), Line is 1-based. Context is the
// joined whole-line window around the match, with its own 1-based
// line bounds.
type Match struct {
	Match            string `json:"match"`
	Start            int    `json:"start"`
	End              int    `json:"end"`
	Line             int    `json:"line"`
	Context          string `json:"context"`
	ContextLineStart int    `json:"contextLineStart"`
	ContextLineEnd   int    `json:"contextLineEnd"`
}

// Result is the outcome of a grep over the document.
//
// Truncated reports that the match cap was reached; it does not probe
// whether further matches exist beyond the cap.
type Result struct {
	Pattern    string  `json:"pattern"`
	MatchCount int     `json:"matchCount"`
	Matches    []Match `json:"matches"`
	Truncated  bool    `json:"truncated"`
}

// Grep scans content for successive non-overlapping matches of
// pattern, compiled case-insensitive and multi-line (anchors bind to
// line boundaries). lines must be content split on "\n". At most
// maxMatches matches are returned, each with contextLines whole lines
// of context on either side.
func Grep(content string, lines []string, pattern string, maxMatches, contextLines int) (*Result, error) {
	re, err := regexp.Compile("(?im)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex pattern: %v", apperr.ErrInvalidParams, err)
	}

	locs := re.FindAllStringIndex(content, maxMatches)
	matches := make([]Match, 0, len(locs))

	for _, loc := range locs {
		start, end := loc[0], loc[1]
		line := linepos.Line(content, start)

		// The lower bound subtracts one extra line relative to the upper
		// bound; preserved for wire compatibility.
		ctxStart := line - contextLines - 1
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := line + contextLines
		if ctxEnd > len(lines) {
			ctxEnd = len(lines)
		}

		matches = append(matches, Match{
			Match:            content[start:end],
			Start:            start,
			End:              end,
			Line:             line,
			Context:          strings.Join(lines[ctxStart:ctxEnd], "\n"),
			ContextLineStart: ctxStart + 1,
			ContextLineEnd:   ctxEnd,
		})
	}

	return &Result{
		Pattern:    pattern,
		MatchCount: len(matches),
		Matches:    matches,
		Truncated:  len(matches) >= maxMatches,
	}, nil
}
