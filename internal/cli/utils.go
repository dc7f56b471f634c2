// Package cli provides output helpers for the docfind command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact prints one line per result: score and path.
	OutputCompact OutputFormat = "compact"
)

// ParseOutputFormat returns the format named s. Unknown names are an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or compact)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%.4f\t%s\n", r.Score, r.Path)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Semantic: %.4f, Keyword: %.4f)\n",
		result.Rank, result.Score, result.SemanticScore, result.KeywordScore)
	fmt.Fprintf(w, "File: %s\n", result.Path)
	if result.Preview != "" {
		fmt.Fprintf(w, "\n%s\n", result.Preview)
	}
	fmt.Fprintln(w)
}

// WriteDocuments lists indexed documents.
func WriteDocuments(w io.Writer, docs []models.DocumentInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, docs)
	}
	for _, d := range docs {
		missing := ""
		if !d.Exists {
			missing = " (missing)"
		}
		if format == OutputCompact {
			fmt.Fprintf(w, "%d\t%s%s\n", d.ID, d.Path, missing)
			continue
		}
		fmt.Fprintf(w, "%6d  %s  %s%s\n", d.ID, d.AddedAt.Local().Format("2006-01-02 15:04"), d.Path, missing)
	}
	if format != OutputCompact {
		fmt.Fprintf(w, "\n%d documents\n", len(docs))
	}
	return nil
}

// WriteStatus prints the index status.
func WriteStatus(w io.Writer, st models.IndexStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:  %d\n", st.Documents)
	fmt.Fprintf(w, "Vectors:    %d\n", st.Vectors)
	fmt.Fprintf(w, "Dimensions: %d\n", st.Dimensions)
	fmt.Fprintf(w, "PDF dir:    %s\n", st.PDFDir)
	fmt.Fprintf(w, "Index:      %s (%s)\n", st.IndexPath, FormatBytes(st.IndexBytes))
	fmt.Fprintf(w, "Database:   %s\n", FormatBytes(st.DatabaseBytes))
	if st.MissingVectors > 0 {
		fmt.Fprintf(w, "Missing:    %d documents have no vector, run 'docfind rebuild'\n", st.MissingVectors)
	}
	return nil
}

// WriteResult prints the summary of a batch operation.
func WriteResult(w io.Writer, op string, res *indexer.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: %d indexed, %d skipped, %d removed, %d failed\n",
		op, res.Indexed, res.Skipped, res.Removed, len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
