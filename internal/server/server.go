// Package server exposes the read-only dashboard and its JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/services/scheduler"
)

// Server manages the HTTP server and routes
type Server struct {
	config    *common.Config
	logger    arbor.ILogger
	cache     *SnapshotCache
	scheduler *scheduler.Service
	router    chi.Router
	server    *http.Server
}

// New creates a new HTTP server. sched may be nil when serve mode has no
// in-process schedule configured.
func New(config *common.Config, logger arbor.ILogger, cache *SnapshotCache, sched *scheduler.Service) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		cache:     cache,
		scheduler: sched,
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // portfolio refresh may hit the provider
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes builds the router with the middleware chain.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/", s.handleDashboard)
	r.Get("/api/portfolio", s.handlePortfolio)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/refresh", s.handleRefresh)
	r.Post("/api/report", s.handleTriggerReport)

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Info().
			Str("address", s.server.Addr).
			Msg("Dashboard server starting")
		s.logger.Info().
			Str("url", fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)).
			Msg("Dashboard available")
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info().Msg("Shutting down dashboard server...")
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Info().Msg("Dashboard server stopped")
	}
	return nil
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
