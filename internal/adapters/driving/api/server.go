package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

const defaultMaxBodyBytes = 1 << 20

// Ports aggregates the driving ports served over HTTP. Only Ask is
// required; routes of a nil port are not mounted.
type Ports struct {
	Ask       driving.AskService
	Retrieval driving.RetrievalService
	Intent    driving.IntentClassifier
	Gating    driving.GatingService
	Whitelist driving.WhitelistService
	Process   driving.ProcessService
}

// Metrics instruments requests and exposes the scrape endpoint.
type Metrics interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts /metrics and records every request.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxBodyBytes limits request bodies. Values <= 0 keep the default of 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMount attaches an extra handler under pattern, e.g. the MCP endpoint.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) { s.mounts = append(s.mounts, mount{pattern, h}) }
}

type mount struct {
	pattern string
	handler http.Handler
}

// Server is the HTTP API.
type Server struct {
	ports        Ports
	metrics      Metrics
	maxBodyBytes int64
	mounts       []mount
	router       chi.Router
}

// NewServer builds the router for the given ports.
func NewServer(ports Ports, opts ...Option) (*Server, error) {
	if ports.Ask == nil {
		return nil, ErrMissingAskService
	}
	s := &Server{ports: ports, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.limitRequestBody)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "procrag"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		if s.ports.Retrieval != nil {
			r.Get("/search", s.handleSearch)
		}
		if s.ports.Intent != nil {
			r.Post("/classify", s.handleClassify)
		}
		if s.ports.Gating != nil {
			r.Post("/gating", s.handleGating)
		}
		if s.ports.Whitelist != nil {
			r.Route("/policy", func(r chi.Router) {
				r.Post("/whitelists", s.handleUpsertWhitelist)
				r.Post("/whitelists/next", s.handleNextAllowed)
				r.Get("/whitelists/{id}", s.handleGetWhitelist)
				r.Get("/definitions/{id}/whitelists", s.handleListWhitelists)
				r.Get("/definitions/{id}/allowed", s.handleAllowedForPrincipal)
				r.Post("/definitions/{id}/defaults", s.handleCreateDefaults)
			})
		}
		if s.ports.Process != nil {
			r.Get("/bpmn/definitions", s.handleDefinitions)
		}
	})

	for _, m := range s.mounts {
		r.Mount(m.pattern, m.handler)
	}
	return r
}

func (s *Server) limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves on addr until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	}
}
