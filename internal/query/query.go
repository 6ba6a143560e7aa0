// Package query ranks chunks against a free-form query by keyword
// overlap. This is a placeholder scorer, not semantic retrieval: a
// chunk scores one point per distinct query keyword found as a
// substring of its lowercased content.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/chunker"
)

var wordRe = regexp.MustCompile(`\b\w+\b`)

// minKeywordLength excludes short stop-word-ish tokens.
const minKeywordLength = 4

// ChunkHit is a scored chunk reference with a content preview.
type ChunkHit struct {
	ChunkIndex int    `json:"chunkIndex"`
	Score      int    `json:"score"`
	Preview    string `json:"preview"`
}

// Result is the ranked outcome of a query.
type Result struct {
	Query          string     `json:"query"`
	Keywords       []string   `json:"keywords"`
	RelevantChunks []ChunkHit `json:"relevantChunks"`
	TotalChunks    int        `json:"totalChunks"`
	Note           string     `json:"note"`
}

// Keywords extracts the lowercase word tokens of the query that are
// long enough to score against.
func Keywords(q string) []string {
	words := wordRe.FindAllString(q, -1)
	out := []string{}
	for _, w := range words {
		if len(w) >= minKeywordLength {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

// Rank scores every chunk against the query keywords and returns the
// topK highest-scoring chunks. Zero-score chunks are excluded; ties
// keep original chunk order. Previews are capped at previewLen
// characters with a trailing ellipsis.
func Rank(q string, chunks []chunker.Chunk, topK, previewLen int) *Result {
	keywords := Keywords(q)

	hits := []ChunkHit{}
	for _, c := range chunks {
		lower := strings.ToLower(c.Content)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, ChunkHit{
				ChunkIndex: c.Index,
				Score:      score,
				Preview:    preview(c.Content, previewLen),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	return &Result{
		Query:          q,
		Keywords:       keywords,
		RelevantChunks: hits,
		TotalChunks:    len(chunks),
		Note:           "keyword-matched chunks only; no semantic retrieval",
	}
}

func preview(content string, max int) string {
	if len(content) > max {
		return content[:max] + "..."
	}
	return content
}
