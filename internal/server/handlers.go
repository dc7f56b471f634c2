package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/embedding"
	"github.com/hyperjump/docfind/internal/extract"
	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/models"
	"github.com/hyperjump/docfind/internal/search"
	"github.com/hyperjump/docfind/internal/storage"
	"go.uber.org/zap"
)

type similarRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type indexRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.engine.FindSimilar(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.fail(w, "find similar failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "total": len(results)})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.bundle.Documents()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "total": len(docs)})
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("index document request", zap.String("path", req.Path))
	id, err := s.indexer.IndexFile(r.Context(), req.Path)
	if err != nil {
		s.fail(w, "indexing failed", err)
		return
	}
	rec, _ := s.bundle.Lookup(id)
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "path": rec.Path, "status": "indexed"})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Debug("delete document request", zap.String("name", name))
	removed, err := s.indexer.Remove(r.Context(), name)
	if err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query := r.URL.Query().Get("q")
	preview, err := s.engine.PreviewDocument(r.Context(), name, query)
	if err != nil {
		s.fail(w, "preview failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document": name, "query": query, "preview": preview})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	res, err := s.indexer.RebuildAll(r.Context())
	if err != nil {
		s.fail(w, "rebuild failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Clear(r.Context()); err != nil {
		s.fail(w, "clear failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.indexer.Sync(r.Context())
	if err != nil {
		s.fail(w, "sync failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var dbPath string
	if s.config != nil {
		dbPath = s.config.Storage.DatabasePath
	}
	s.respondJSON(w, http.StatusOK, s.bundle.Status(dbPath))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, bundle.ErrInvalidPath),
		errors.Is(err, bundle.ErrAlreadyIndexed),
		errors.Is(err, indexer.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, bundle.ErrFileNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extract.ErrExtractFailed),
		errors.Is(err, bundle.ErrEmptyText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, embedding.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
