package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/internal/embedding"
	"github.com/hyperjump/docfind/internal/extract"
	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/models"
	"github.com/hyperjump/docfind/internal/search"
	"github.com/hyperjump/docfind/internal/storage"
	"github.com/hyperjump/docfind/internal/textcache"
	"github.com/hyperjump/docfind/internal/vector"
)

const testDims = 16

type testServer struct {
	srv     *Server
	handler http.Handler
	pdfDir  string
	bundle  *bundle.Bundle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "documents.db")
	cfg.Storage.IndexPath = filepath.Join(dir, "index.bin")
	cfg.Storage.PDFDir = filepath.Join(dir, "pdfs")
	if err := os.MkdirAll(cfg.Storage.PDFDir, 0755); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewSQLiteMappingStore(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	vecIdx, err := vector.NewFlatIndex(testDims)
	if err != nil {
		t.Fatal(err)
	}
	b := bundle.New(vecIdx, store, cfg.Storage.PDFDir, cfg.Storage.IndexPath)
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	cache, err := textcache.Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cache.Close() })
	loader := textcache.NewLoader(cfg.Storage.PDFDir, extract.NewExtractor(), cache, nil)
	embedder := embedding.NewMockEmbedder(testDims)

	engine := search.NewEngine(b, embedder, loader, cfg.Search)
	idx, err := indexer.NewIndexer(b, embedder, loader, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(idx.Close)

	srv := NewServer(engine, idx, b, cfg, nil)
	return &testServer{srv: srv, handler: srv.Handler(), pdfDir: cfg.Storage.PDFDir, bundle: b}
}

func (ts *testServer) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ts.pdfDir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestIndexAndSearch(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "report.txt", "The quarterly revenue report shows growth in every region.")
	ts.write(t, "pasta.txt", "Cooking pasta recipes for a quick weeknight dinner.")

	for _, name := range []string{"report.txt", "pdfs/pasta.txt"} {
		w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": name})
		if w.Code != http.StatusCreated {
			t.Fatalf("index %s: got %d, body: %s", name, w.Code, w.Body.String())
		}
	}

	w := ts.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "revenue", "limit": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("search: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if resp.Total != 1 || resp.Results[0].Path != "report.txt" {
		t.Fatalf("results: got %+v", resp.Results)
	}
	if resp.Results[0].Preview == "" {
		t.Error("expected a preview")
	}

	w = ts.do(t, http.MethodPost, "/api/v1/similar", map[string]interface{}{"query": "pasta dinner", "limit": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("similar: got %d, body: %s", w.Code, w.Body.String())
	}
	var similar struct {
		Results []*models.SearchResult `json:"results"`
	}
	decode(t, w, &similar)
	if len(similar.Results) != 1 || similar.Results[0].Path != "pasta.txt" {
		t.Errorf("similar: got %+v", similar.Results)
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	ts := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/search", map[string]string{"query": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %d, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleIndexDocument_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "empty.txt", "   ")
	ts.write(t, "dup.txt", "duplicate content")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing path", "", http.StatusBadRequest},
		{"missing file", "nope.pdf", http.StatusNotFound},
		{"unsupported", "sheet.xlsx", http.StatusBadRequest},
		{"empty text", "empty.txt", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": tt.path})
			if w.Code != tt.want {
				t.Errorf("got %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": "dup.txt"}); w.Code != http.StatusCreated {
		t.Fatalf("first index: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": "dup.txt"}); w.Code != http.StatusBadRequest {
		t.Errorf("second index: got %d, want 400", w.Code)
	}
}

func TestListAndDeleteDocuments(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "a.txt", "alpha document")
	ts.write(t, "b.txt", "beta document")
	w := ts.do(t, http.MethodPost, "/api/v1/maintenance/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync: got %d, body: %s", w.Code, w.Body.String())
	}
	var res indexer.Result
	decode(t, w, &res)
	if res.Indexed != 2 {
		t.Errorf("sync indexed: got %d, want 2", res.Indexed)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/documents", nil)
	var list struct {
		Documents []models.DocumentInfo `json:"documents"`
		Total     int                   `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 2 || list.Documents[0].Path != "a.txt" || !list.Documents[0].Exists {
		t.Errorf("documents: got %+v", list)
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/documents/a.txt", nil); w.Code != http.StatusOK {
		t.Errorf("delete: got %d, body: %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodDelete, "/api/v1/documents/a.txt", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", w.Code)
	}
	if ts.bundle.Has("a.txt") {
		t.Error("a.txt still mapped")
	}
}

func TestHandlePreview(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "a.txt", "The quarterly revenue grew in every region. Nothing else happened here")
	ts.write(t, "b.txt", "Revenue notes that will be deleted from disk")
	for _, name := range []string{"a.txt", "b.txt"} {
		if w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": name}); w.Code != http.StatusCreated {
			t.Fatalf("index %s: got %d", name, w.Code)
		}
	}
	if err := os.Remove(filepath.Join(ts.pdfDir, "b.txt")); err != nil {
		t.Fatal(err)
	}

	w := ts.do(t, http.MethodGet, "/api/v1/documents/a.txt/preview?q=revenue", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: got %d, body: %s", w.Code, w.Body.String())
	}
	var got map[string]string
	decode(t, w, &got)
	if got["preview"] != "The quarterly **revenue** grew in every region" {
		t.Errorf("preview: got %q", got["preview"])
	}
	w = ts.do(t, http.MethodGet, "/api/v1/documents/b.txt/preview?q=revenue", nil)
	decode(t, w, &got)
	if w.Code != http.StatusOK || got["preview"] != search.DocumentNotFound {
		t.Errorf("deleted file: got %d %q", w.Code, got["preview"])
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/documents/missing.txt/preview?q=revenue", nil); w.Code != http.StatusNotFound {
		t.Errorf("unindexed: got %d, want 404", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/documents/a.txt/preview", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no query: got %d, want 400", w.Code)
	}
}

func TestMaintenance(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "a.txt", "alpha document")
	if w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": "a.txt"}); w.Code != http.StatusCreated {
		t.Fatalf("index: got %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/api/v1/maintenance/rebuild", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rebuild: got %d, body: %s", w.Code, w.Body.String())
	}
	var res indexer.Result
	decode(t, w, &res)
	if res.Indexed != 1 {
		t.Errorf("rebuild indexed: got %d", res.Indexed)
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/maintenance/clear", nil); w.Code != http.StatusOK {
		t.Fatalf("clear: got %d", w.Code)
	}
	if ts.bundle.Count() != 0 {
		t.Errorf("count after clear: %d", ts.bundle.Count())
	}
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.write(t, "a.txt", "alpha document")
	if w := ts.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": "a.txt"}); w.Code != http.StatusCreated {
		t.Fatalf("index: got %d", w.Code)
	}
	w := ts.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var st models.IndexStatus
	decode(t, w, &st)
	if st.Documents != 1 || st.Vectors != 1 || st.Dimensions != testDims {
		t.Errorf("status: got %+v", st)
	}
	if st.IndexBytes < 1 || st.DatabaseBytes < 1 {
		t.Errorf("disk usage: got index=%d db=%d", st.IndexBytes, st.DatabaseBytes)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{search.ErrEmptyQuery, http.StatusBadRequest},
		{fmt.Errorf("x: %w", bundle.ErrInvalidPath), http.StatusBadRequest},
		{fmt.Errorf("x: %w", bundle.ErrFileNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", extract.ErrExtractFailed), http.StatusUnprocessableEntity},
		{bundle.ErrEmptyText, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: embed query: %w", search.ErrSearchFailed, embedding.ErrProviderUnavailable), http.StatusServiceUnavailable},
		{search.ErrSearchFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
