// Package api exposes the status and metrics HTTP surface served while a
// crawl runs.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/metrics"
	"github.com/meiran-labs/lessons-crawler/internal/reconcile"
)

// StatusProvider reports the current run state.
type StatusProvider interface {
	Status() reconcile.Status
}

// Server wires the status provider to HTTP handlers.
type Server struct {
	router chi.Router
	status StatusProvider
	logger *zap.Logger
}

// NewServer constructs a Server with its routes.
func NewServer(status StatusProvider, logger *zap.Logger) *Server {
	s := &Server{status: status, logger: logger}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/v1/run", s.runStatus)
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) runStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}
