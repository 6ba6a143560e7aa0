package debugserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/session"
)

func testSession(t *testing.T, initialized bool) *session.Session {
	t.Helper()
	s := session.New(session.Defaults{
		ChunkSize: 4000, ChunkOverlap: 200,
		MaxMatches: 10, ContextLines: 2, QueryTopK: 5, PreviewLen: 200,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if initialized {
		path := filepath.Join(t.TempDir(), "doc.txt")
		if err := os.WriteFile(path, []byte("ab\ncd\nef"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Init(path, nil, nil); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	return s
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	r := NewRouter(testSession(t, false))
	rec := get(t, r, "/health/live")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	r := NewRouter(testSession(t, true))
	rec := get(t, r, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var st session.StatusResult
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Initialized || st.ContentLength != 8 {
		t.Errorf("status = %+v", st)
	}
}

func TestChunksEndpointStripsContent(t *testing.T) {
	r := NewRouter(testSession(t, true))
	rec := get(t, r, "/chunks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var res struct {
		ChunkCount int              `json:"chunkCount"`
		Chunks     []map[string]any `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount == 0 {
		t.Fatal("no chunks")
	}
	for _, c := range res.Chunks {
		if _, ok := c["content"]; ok {
			t.Error("chunk content leaked into debug listing")
		}
	}
}

func TestEndpointsBeforeInit(t *testing.T) {
	r := NewRouter(testSession(t, false))

	if rec := get(t, r, "/chunks"); rec.Code != http.StatusConflict {
		t.Errorf("/chunks status = %d, want conflict before init", rec.Code)
	}
	if rec := get(t, r, "/buffers"); rec.Code != http.StatusConflict {
		t.Errorf("/buffers status = %d, want conflict before init", rec.Code)
	}
	if rec := get(t, r, "/status"); rec.Code != http.StatusOK {
		t.Errorf("/status must work before init, got %d", rec.Code)
	}
}
