// Package server provides the HTTP API for Miteru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/miteru/internal/config"
	"github.com/hyperjump/miteru/internal/ingest"
	"github.com/hyperjump/miteru/internal/keyword"
	"github.com/hyperjump/miteru/internal/query"
	"github.com/hyperjump/miteru/internal/storage"
	"github.com/hyperjump/miteru/internal/vector"
)

// Server is the HTTP server for the Miteru API.
type Server struct {
	pipeline *ingest.Pipeline
	engine   *query.Engine
	storage  storage.Storage
	index    vector.Index
	keywords keyword.Index
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. keywords may be nil.
func NewServer(
	pipeline *ingest.Pipeline,
	engine *query.Engine,
	store storage.Storage,
	index vector.Index,
	keywords keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		engine:   engine,
		storage:  store,
		index:    index,
		keywords: keywords,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Ingestion captions every frame through the vision model; give uploads
	// plenty of room before the middleware cuts them off.
	r.Use(middleware.Timeout(30 * time.Minute))

	r.Post("/api/v1/videos", s.handleUploadVideo)
	r.Get("/api/v1/videos", s.handleListVideos)
	r.Get("/api/v1/videos/{id}", s.handleGetVideo)
	r.Delete("/api/v1/videos/{id}", s.handleDeleteVideo)
	r.Post("/api/v1/videos/{id}/ask", s.handleAsk)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
