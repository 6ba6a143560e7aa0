package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func grep(t *testing.T, content, pattern string, maxMatches, contextLines int) *Result {
	t.Helper()
	res, err := Grep(content, strings.Split(content, "\n"), pattern, maxMatches, contextLines)
	if err != nil {
		t.Fatalf("Grep(%q): %v", pattern, err)
	}
	return res
}

func TestGrepMatchesOnEveryLine(t *testing.T) {
	res := grep(t, "ab\nab\nab", "ab", 10, 2)

	if res.MatchCount != 3 {
		t.Fatalf("matchCount = %d, want 3", res.MatchCount)
	}
	for i, want := range []int{1, 2, 3} {
		if res.Matches[i].Line != want {
			t.Errorf("match %d line = %d, want %d", i, res.Matches[i].Line, want)
		}
	}
	if res.Truncated {
		t.Error("truncated should be false under the cap")
	}
}

func TestGrepCaseInsensitive(t *testing.T) {
	res := grep(t, "Hello\nHELLO\nhello", "hello", 10, 0)
	if res.MatchCount != 3 {
		t.Errorf("matchCount = %d, want 3", res.MatchCount)
	}
}

func TestGrepMultilineAnchors(t *testing.T) {
	res := grep(t, "foo\nbar\nfoo", "^foo$", 10, 0)
	if res.MatchCount != 2 {
		t.Errorf("matchCount = %d, want 2", res.MatchCount)
	}
}

func TestGrepTruncation(t *testing.T) {
	content := strings.TrimSuffix(strings.Repeat("ab\n", 5), "\n")
	res := grep(t, content, "ab", 3, 0)

	if res.MatchCount != 3 {
		t.Fatalf("matchCount = %d, want 3", res.MatchCount)
	}
	if !res.Truncated {
		t.Error("truncated should be true when the cap is reached")
	}
}

func TestGrepTruncatedAtExactCap(t *testing.T) {
	// The flag reports only that the cap was hit, even when no further
	// matches exist.
	res := grep(t, "ab ab", "ab", 2, 0)
	if res.MatchCount != 2 || !res.Truncated {
		t.Errorf("matchCount = %d truncated = %v, want 2/true", res.MatchCount, res.Truncated)
	}
}

func TestGrepContextWindow(t *testing.T) {
	content := "l1\nl2\nl3\nl4\nl5"
	res := grep(t, content, "l3", 10, 1)

	if res.MatchCount != 1 {
		t.Fatalf("matchCount = %d, want 1", res.MatchCount)
	}
	m := res.Matches[0]
	if m.Line != 3 {
		t.Errorf("line = %d, want 3", m.Line)
	}
	// Lower bound: 3-1-1 = 1 (0-based), upper: min(5, 3+1) = 4.
	if m.Context != "l2\nl3\nl4" {
		t.Errorf("context = %q", m.Context)
	}
	if m.ContextLineStart != 2 || m.ContextLineEnd != 4 {
		t.Errorf("context lines = %d-%d, want 2-4", m.ContextLineStart, m.ContextLineEnd)
	}
}

func TestGrepContextClampedAtEdges(t *testing.T) {
	content := "l1\nl2\nl3"
	res := grep(t, content, "l1", 10, 5)

	m := res.Matches[0]
	if m.ContextLineStart != 1 || m.ContextLineEnd != 3 {
		t.Errorf("context lines = %d-%d, want 1-3", m.ContextLineStart, m.ContextLineEnd)
	}
	if m.Context != content {
		t.Errorf("context = %q", m.Context)
	}
}

func TestGrepOffsets(t *testing.T) {
	res := grep(t, "xx needle yy", "needle", 10, 0)
	m := res.Matches[0]
	if m.Start != 3 || m.End != 9 || m.Match != "needle" {
		t.Errorf("match = %+v", m)
	}
}

func TestGrepInvalidPattern(t *testing.T) {
	_, err := Grep("content", []string{"content"}, "(unclosed", 10, 2)
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !errors.Is(err, apperr.ErrInvalidParams) {
		t.Errorf("error = %v, want ErrInvalidParams", err)
	}
}
