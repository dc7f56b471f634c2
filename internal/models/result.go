// Package models defines the request and response shapes shared by the
// search engine, the HTTP API and the CLI.
package models

import "time"

// SearchResult represents a single search hit.
type SearchResult struct {
	ID            int64   `json:"id"`
	Path          string  `json:"path"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	Preview       string  `json:"preview,omitempty"`
	Rank          int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// DocumentInfo describes one indexed document.
type DocumentInfo struct {
	ID      int64     `json:"id"`
	Path    string    `json:"path"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"added_at"`
	Exists  bool      `json:"exists"`
}

// IndexStatus summarizes the state of the index.
type IndexStatus struct {
	Documents      int    `json:"documents"`
	Vectors        int    `json:"vectors"`
	Dimensions     int    `json:"dimensions"`
	PDFDir         string `json:"pdf_dir"`
	IndexPath      string `json:"index_path"`
	IndexBytes     int64  `json:"index_bytes"`
	DatabaseBytes  int64  `json:"database_bytes"`
	MissingVectors int    `json:"missing_vectors"` // mapped documents awaiting a rebuild
}
