package e2e

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hyperjump/docfind/internal/extract"
)

func TestMinimalPDF_Extractable(t *testing.T) {
	data := MinimalPDF("Quarterly Report\n\nRevenue grew (again) this quarter.")
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatalf("missing PDF header")
	}
	text, err := extract.NewExtractor().ExtractBytes(data, ".pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"Quarterly Report", "Revenue grew (again) this quarter."} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text %q missing %q", text, want)
		}
	}
}

func TestFileBytes(t *testing.T) {
	for _, ext := range SupportedFileExtensions {
		data, err := FileBytes(ext, "hello")
		if err != nil || len(data) == 0 {
			t.Errorf("FileBytes(%q): %d bytes, %v", ext, len(data), err)
		}
	}
	if _, err := FileBytes(".docx", "hello"); err == nil {
		t.Error("expected error for .docx")
	}
}
