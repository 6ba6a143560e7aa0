package rpc

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	docPath := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(docPath, []byte("ab\ncd\nef"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Defaults{
		ChunkSize: 4000, ChunkOverlap: 200,
		MaxMatches: 10, ContextLines: 2, QueryTopK: 5, PreviewLen: 200,
	}, nil, testLogger())
	return NewDispatcher(sess, testLogger()), docPath
}

func dispatch(t *testing.T, d *Dispatcher, id, method, params string) Response {
	t.Helper()
	req := Request{ID: json.RawMessage(id), Method: method}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return d.Dispatch(req)
}

func initDoc(t *testing.T, d *Dispatcher, docPath string) {
	t.Helper()
	resp := dispatch(t, d, `1`, "init", `{"documentPath": `+mustJSON(t, docPath)+`}`)
	if resp.Error != nil {
		t.Fatalf("init failed: %+v", resp.Error)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestDispatchMissingMethod(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `7`, "", "")
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Errorf("response = %+v", resp)
	}
	if string(resp.ID) != `7` {
		t.Errorf("id = %s, want 7", resp.ID)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `"a"`, "frobnicate", "")
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("response = %+v", resp)
	}
}

func TestDispatchNotInitialized(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `1`, "peek", `{"start": 0, "end": 1}`)
	if resp.Error == nil || resp.Error.Code != CodeNotInitialized {
		t.Errorf("response = %+v", resp)
	}
}

func TestDispatchStatusAllowedBeforeInit(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `1`, "status", "")
	if resp.Error != nil {
		t.Fatalf("status failed: %+v", resp.Error)
	}
	st := resp.Result.(*session.StatusResult)
	if st.Initialized {
		t.Error("initialized should be false")
	}
}

func TestDispatchInitFileNotFound(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `1`, "init", `{"documentPath": "/nonexistent/nope.txt"}`)
	if resp.Error == nil || resp.Error.Code != CodeFileNotFound {
		t.Errorf("response = %+v", resp)
	}
}

func TestDispatchInitValidation(t *testing.T) {
	d, _ := testDispatcher(t)

	resp := dispatch(t, d, `1`, "init", `{}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("missing documentPath: %+v", resp)
	}

	resp = dispatch(t, d, `1`, "init", `{"documentPath": "x", "chunkSize": 0}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("zero chunkSize: %+v", resp)
	}
}

func TestDispatchPeekAndRange(t *testing.T) {
	d, docPath := testDispatcher(t)
	initDoc(t, d, docPath)

	resp := dispatch(t, d, `2`, "peek", `{"start": 3, "end": 5}`)
	if resp.Error != nil {
		t.Fatalf("peek failed: %+v", resp.Error)
	}
	pr := resp.Result.(*session.PeekResult)
	if pr.Content != "cd" {
		t.Errorf("content = %q", pr.Content)
	}

	resp = dispatch(t, d, `3`, "peek", `{"start": 5, "end": 5}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidRange {
		t.Errorf("invalid range: %+v", resp)
	}
}

func TestDispatchGrep(t *testing.T) {
	d, docPath := testDispatcher(t)
	initDoc(t, d, docPath)

	resp := dispatch(t, d, `4`, "grep", `{"pattern": "[a-z]b"}`)
	if resp.Error != nil {
		t.Fatalf("grep failed: %+v", resp.Error)
	}

	resp = dispatch(t, d, `5`, "grep", `{"pattern": "("}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("invalid pattern: %+v", resp)
	}

	resp = dispatch(t, d, `6`, "grep", `{}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("missing pattern: %+v", resp)
	}
}

func TestDispatchGetChunkValidation(t *testing.T) {
	d, docPath := testDispatcher(t)
	initDoc(t, d, docPath)

	// Index 0 is valid and must not be rejected as absent.
	resp := dispatch(t, d, `1`, "get_chunk", `{"index": 0}`)
	if resp.Error != nil {
		t.Fatalf("get_chunk 0 failed: %+v", resp.Error)
	}

	resp = dispatch(t, d, `2`, "get_chunk", `{}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("absent index: %+v", resp)
	}

	resp = dispatch(t, d, `3`, "get_chunk", `{"index": 99}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("out of range index: %+v", resp)
	}
}

func TestDispatchAddBufferValidation(t *testing.T) {
	d, docPath := testDispatcher(t)
	initDoc(t, d, docPath)

	// Empty content is allowed; absent content is not.
	resp := dispatch(t, d, `1`, "add_buffer", `{"content": ""}`)
	if resp.Error != nil {
		t.Fatalf("empty content rejected: %+v", resp.Error)
	}

	resp = dispatch(t, d, `2`, "add_buffer", `{"label": "x"}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("absent content: %+v", resp)
	}
}

func TestDispatchEval(t *testing.T) {
	d, docPath := testDispatcher(t)
	initDoc(t, d, docPath)

	resp := dispatch(t, d, `1`, "eval", `{"op": "count", "args": {"pattern": "\\w+"}}`)
	if resp.Error != nil {
		t.Fatalf("eval failed: %+v", resp.Error)
	}

	resp = dispatch(t, d, `2`, "eval", `{"op": "exec", "args": {}}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("unknown op: %+v", resp)
	}
}

func TestDispatchMalformedParams(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `1`, "init", `{"documentPath": 42}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("response = %+v", resp)
	}
}

func TestDispatchIDPassthrough(t *testing.T) {
	d, _ := testDispatcher(t)

	for _, id := range []string{`1`, `"str-id"`, `null`, `{"odd": true}`} {
		resp := dispatch(t, d, id, "status", "")
		if string(resp.ID) != id {
			t.Errorf("id %s came back as %s", id, resp.ID)
		}
	}
}

func TestDispatchShutdown(t *testing.T) {
	d, _ := testDispatcher(t)
	resp := dispatch(t, d, `9`, "shutdown", "")
	if resp.Error != nil {
		t.Fatalf("shutdown failed: %+v", resp.Error)
	}
	if resp.Result.(*ShutdownResult).Status != "shutting_down" {
		t.Errorf("result = %+v", resp.Result)
	}
}
