// Package debugserver exposes a read-only HTTP surface for inspecting
// the worker session while it serves the stdio protocol. It is meant
// for local debugging and is disabled unless configured.
package debugserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/ansuz/internal/session"
)

// Handler holds the debug route handlers.
type Handler struct {
	sess *session.Session
}

// NewRouter builds the debug router over the given session.
func NewRouter(sess *session.Session) http.Handler {
	h := &Handler{sess: sess}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/status", h.Status)
	r.Get("/chunks", h.Chunks)
	r.Get("/buffers", h.Buffers)

	return r
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Status())
}

// Chunks handles GET /chunks: metadata only, content stripped.
func (h *Handler) Chunks(w http.ResponseWriter, _ *http.Request) {
	res, err := h.sess.Chunks(false)
	if err != nil {
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Buffers handles GET /buffers.
func (h *Handler) Buffers(w http.ResponseWriter, _ *http.Request) {
	res, err := h.sess.Buffers()
	if err != nil {
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
