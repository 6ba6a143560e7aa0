// Package evalx implements the bounded expression sublanguage that
// replaces free-form code evaluation. Every operation is enumerated
// and named; there is no way to express general-purpose computation
// over the session.
package evalx

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/session"
)

// defaultFindMax caps find results when the request does not.
const defaultFindMax = 100

// Result carries the operation's value and its reported type name,
// one of "string", "int", "[]string", "object", or "null".
type Result struct {
	Result any    `json:"result"`
	Type   string `json:"type"`
}

// Apply runs the named operation against the session. Unknown
// operations and malformed arguments fail with ErrInvalidParams.
func Apply(sess *session.Session, op string, args json.RawMessage) (*Result, error) {
	switch op {
	case "slice":
		return applySlice(sess, args)
	case "find":
		return applyFind(sess, args)
	case "count":
		return applyCount(sess, args)
	case "line":
		return applyLine(sess, args)
	case "add_buffer":
		return applyAddBuffer(sess, args)
	default:
		return nil, fmt.Errorf("%w: unknown op: %s", apperr.ErrInvalidParams, op)
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
	}
	return nil
}

func applySlice(sess *session.Session, args json.RawMessage) (*Result, error) {
	var a struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := sess.Peek(a.Start, a.End)
	if err != nil {
		return nil, err
	}
	return &Result{Result: res.Content, Type: "string"}, nil
}

func applyFind(sess *session.Session, args json.RawMessage) (*Result, error) {
	var a struct {
		Pattern *string `json:"pattern"`
		Max     *int    `json:"max"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Pattern == nil {
		return nil, fmt.Errorf("%w: pattern is required", apperr.ErrInvalidParams)
	}
	content, _, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile("(?im)" + *a.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex pattern: %v", apperr.ErrInvalidParams, err)
	}
	max := defaultFindMax
	if a.Max != nil && *a.Max > 0 {
		max = *a.Max
	}
	found := re.FindAllString(content, max)
	if found == nil {
		found = []string{}
	}
	return &Result{Result: found, Type: "[]string"}, nil
}

func applyCount(sess *session.Session, args json.RawMessage) (*Result, error) {
	var a struct {
		Pattern *string `json:"pattern"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Pattern == nil {
		return nil, fmt.Errorf("%w: pattern is required", apperr.ErrInvalidParams)
	}
	content, _, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile("(?im)" + *a.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex pattern: %v", apperr.ErrInvalidParams, err)
	}
	return &Result{Result: len(re.FindAllStringIndex(content, -1)), Type: "int"}, nil
}

func applyLine(sess *session.Session, args json.RawMessage) (*Result, error) {
	var a struct {
		Number *int `json:"number"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Number == nil {
		return nil, fmt.Errorf("%w: number is required", apperr.ErrInvalidParams)
	}
	_, lines, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	n := *a.Number
	if n < 1 || n > len(lines) {
		return nil, fmt.Errorf("%w: line number out of range: %d", apperr.ErrInvalidParams, n)
	}
	return &Result{Result: lines[n-1], Type: "string"}, nil
}

func applyAddBuffer(sess *session.Session, args json.RawMessage) (*Result, error) {
	var a struct {
		Content *string `json:"content"`
		Label   *string `json:"label"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Content == nil {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrInvalidParams)
	}
	res, err := sess.AddBuffer(*a.Content, a.Label)
	if err != nil {
		return nil, err
	}
	return &Result{Result: res, Type: "object"}, nil
}
