// Package api serves a small read-only status surface for a live run.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ponram06/WhatsappBulksender/internal/dispatch"
	"github.com/ponram06/WhatsappBulksender/internal/history"
)

// SnapshotProvider exposes the current run state.
type SnapshotProvider interface {
	Snapshot() dispatch.Snapshot
}

type Server struct {
	r    *chi.Mux
	snap SnapshotProvider
	hist history.Store
}

// NewServer builds the status router. hist may be nil when the history
// store is disabled; the history endpoints then return 404.
func NewServer(snap SnapshotProvider, hist history.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, snap: snap, hist: hist}

	r.Get("/health", s.health)
	r.Get("/api/run", s.currentRun)
	r.Get("/api/runs", s.listRuns)
	r.Get("/api/attempts", s.recentAttempts)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) currentRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snap.Snapshot())
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		http.NotFound(w, r)
		return
	}
	runs, err := s.hist.ListRuns(r.Context(), limitParam(r, 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) recentAttempts(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		http.NotFound(w, r)
		return
	}
	attempts, err := s.hist.RecentAttempts(r.Context(), limitParam(r, 50))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
