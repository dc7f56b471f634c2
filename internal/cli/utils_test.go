package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "revenue",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				ID:            7,
				Path:          "report.pdf",
				Title:         "report.pdf",
				Score:         0.9,
				SemanticScore: 0.8,
				KeywordScore:  1,
				Preview:       "The quarterly **revenue** grew.",
				Rank:          1,
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Path != "report.pdf" {
		t.Errorf("decoded results: got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results", `"revenue"`, "42ms", "File: report.pdf", "Score: 0.9000", "**revenue**"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "0.9000\treport.pdf\n" {
		t.Errorf("compact output: got %q", got)
	}
}

func TestWriteSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	response := &models.SearchResponse{Query: "nothing", Results: []*models.SearchResult{}}
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("output: %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteDocuments(t *testing.T) {
	docs := []models.DocumentInfo{
		{ID: 1, Path: "a.pdf", AddedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), Exists: true},
		{ID: 2, Path: "b.pdf", Exists: false},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "1\ta.pdf\n2\tb.pdf (missing)\n" {
		t.Errorf("compact: got %q", got)
	}

	buf.Reset()
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2 documents") {
		t.Errorf("text: got %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	st := models.IndexStatus{Documents: 3, Vectors: 3, Dimensions: 384, IndexBytes: 4608}
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Documents:  3") || !strings.Contains(out, "4.5 KiB") {
		t.Errorf("status output:\n%s", out)
	}
	if strings.Contains(out, "Missing:") {
		t.Errorf("healthy index should not report missing vectors:\n%s", out)
	}

	buf.Reset()
	st.Vectors, st.MissingVectors = 1, 2
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Missing:    2 documents have no vector, run 'docfind rebuild'") {
		t.Errorf("status output:\n%s", buf.String())
	}
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	res := &indexer.Result{Indexed: 2, Skipped: 1, Failed: []indexer.Failure{{Path: "bad.pdf", Error: "extract failed"}}}
	if err := WriteResult(&buf, "sync", res, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "sync: 2 indexed, 1 skipped, 0 removed, 1 failed\n  bad.pdf: extract failed\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
