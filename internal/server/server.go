// Package server provides the HTTP API for docfind.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/search"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

// Server is the HTTP server for the docfind API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	bundle  *bundle.Bundle
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	b *bundle.Bundle,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		indexer: idx,
		bundle:  b,
		config:  cfg,
		logger:  utils.OrNop(logger).Named("server"),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/similar", s.handleSimilar)
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleIndexDocument)
		r.Delete("/documents/{name}", s.handleDeleteDocument)
		r.Get("/documents/{name}/preview", s.handlePreview)
		r.Post("/maintenance/rebuild", s.handleRebuild)
		r.Post("/maintenance/clear", s.handleClear)
		r.Post("/maintenance/sync", s.handleSync)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
