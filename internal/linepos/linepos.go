// Package linepos maps character offsets to 1-based line numbers.
// It must stay consistent with splitting content on "\n": the line
// number of an offset is the number of newlines strictly before it,
// plus one.
package linepos

import "strings"

// Line returns the 1-based line number containing the given character
// offset. Offsets at or below zero map to line 1.
func Line(content string, offset int) int {
	if offset <= 0 {
		return 1
	}
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}
