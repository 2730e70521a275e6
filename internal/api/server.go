// Package api exposes the HTTP boundary UI consumers talk to: per
// domain, its state plus idempotent trigger and reset.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/orchestrator"
	"github.com/acstiles/media-preloader/internal/preload"
)

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router  chi.Router
	orch    *orchestrator.Service
	baseCtx context.Context
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. Pipelines
// started by trigger handlers run on baseCtx, not the request context,
// so they outlive the HTTP exchange.
func NewServer(orch *orchestrator.Service, baseCtx context.Context, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		orch:    orch,
		baseCtx: baseCtx,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/preload", s.preloadAll)
		r.Route("/domains/{domain}", func(r chi.Router) {
			r.Get("/", s.getState)
			r.Post("/trigger", s.trigger)
			r.Post("/reset", s.reset)
		})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) preloadAll(w http.ResponseWriter, _ *http.Request) {
	s.orch.TriggerAll(s.baseCtx)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "preloading"})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	domain, ok := s.domainFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orch.State(domain))
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	domain, ok := s.domainFrom(w, r)
	if !ok {
		return
	}
	started := s.orch.Trigger(s.baseCtx, domain)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"domain":  domain,
		"started": started,
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	domain, ok := s.domainFrom(w, r)
	if !ok {
		return
	}
	if err := s.orch.Reset(r.Context(), domain); err != nil {
		s.logger.Error("reset failed",
			zap.String("domain", string(domain)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) domainFrom(w http.ResponseWriter, r *http.Request) (preload.Domain, bool) {
	domain := preload.Domain(chi.URLParam(r, "domain"))
	if !domain.Valid() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown domain"})
		return "", false
	}
	return domain, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
