// Package extract provides text extraction from PDF and plain-text documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var supported = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Supported reports whether path has an extension the extractor handles.
func Supported(path string) bool {
	return supported[strings.ToLower(filepath.Ext(path))]
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Every failure, including a missing file, wraps ErrExtractFailed.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrExtractFailed, path, err)
	}
	text, err := e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractFailed, path, err)
	}
	return text, nil
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Anything that is not a PDF
// is treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	default:
		return extractPlain(content)
	}
}
