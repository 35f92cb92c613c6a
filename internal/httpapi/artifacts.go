package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/forPelevin/gifcut/internal/deps"
)

func (s *Server) artifact(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	f, err := s.artifacts.Open(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "NotFound", "no such GIF")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeJSONError(w, http.StatusNotFound, "NotFound", "no such GIF")
		return
	}
	w.Header().Set("Content-Type", "image/gif")
	// Artifacts are never rewritten under the same name.
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type healthResponse struct {
	Status string        `json:"status"`
	Tools  []deps.Status `json:"tools,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health == nil {
		writeJSONStatus(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	statuses := s.cfg.Health(ctx)
	if len(deps.MissingRequired(statuses)) > 0 {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Tools: statuses})
		return
	}
	writeJSONStatus(w, http.StatusOK, healthResponse{Status: "ok", Tools: statuses})
}
