package search

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/docfind/internal/embedding"
	"github.com/hyperjump/docfind/pkg/utils"
)

func newTestPreview(maxLen int) (*PreviewGenerator, *embedding.MockEmbedder) {
	emb := embedding.NewMockEmbedder(testDims)
	return NewPreviewGenerator(emb, maxLen, 20, 0.7, 0.3, nil), emb
}

func queryVec(t *testing.T, emb *embedding.MockEmbedder, q string) []float32 {
	t.Helper()
	v, err := emb.Embed(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	return utils.NormalizedCopy(v)
}

func TestPreview_Sentences(t *testing.T) {
	p, _ := newTestPreview(200)
	got := p.Sentences("Short one. This sentence is long enough\nto keep.   Tiny.  Another sentence that is kept ")
	want := []string{"This sentence is long enough to keep", "Another sentence that is kept"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPreview_PicksMatchingSentence(t *testing.T) {
	p, emb := newTestPreview(200)
	text := "The weather was pleasant all week long. Our quarterly revenue grew by ten percent. Pasta recipes are in the appendix."
	got := p.FromText(context.Background(), text, []string{"revenue"}, queryVec(t, emb, "revenue"))
	if got != "Our quarterly **revenue** grew by ten percent" {
		t.Errorf("got %q", got)
	}
}

func TestPreview_NoMatch(t *testing.T) {
	p, emb := newTestPreview(200)
	text := "The weather was pleasant all week long. Nothing else to report here today."
	if got := p.FromText(context.Background(), text, []string{"revenue"}, queryVec(t, emb, "revenue")); got != NoPreview {
		t.Errorf("got %q", got)
	}
	if got := p.FromText(context.Background(), "revenue.", []string{"revenue"}, queryVec(t, emb, "revenue")); got != NoPreview {
		t.Errorf("short sentences should be ignored, got %q", got)
	}
}

func TestPreview_Truncates(t *testing.T) {
	p, emb := newTestPreview(30)
	text := "The revenue figures for this quarter exceeded every forecast we made"
	got := p.FromText(context.Background(), text, []string{"revenue"}, queryVec(t, emb, "revenue"))
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation marker, got %q", got)
	}
	if !strings.Contains(got, "**revenue**") {
		t.Errorf("expected highlight, got %q", got)
	}
}

func TestPreview_ForDocument(t *testing.T) {
	p, emb := newTestPreview(200)
	texts := mapTexts{"a.pdf": "Our quarterly revenue grew by ten percent."}
	got, err := p.ForDocument(context.Background(), texts, "a.pdf", []string{"revenue"}, queryVec(t, emb, "revenue"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Our quarterly **revenue** grew by ten percent" {
		t.Errorf("got %q", got)
	}
	got, err = p.ForDocument(context.Background(), texts, "gone.pdf", []string{"revenue"}, queryVec(t, emb, "revenue"))
	if err != nil {
		t.Fatal(err)
	}
	if got != DocumentNotFound {
		t.Errorf("got %q", got)
	}
}

func TestHighlight(t *testing.T) {
	if got := Highlight("revenue and Revenue", []string{"revenue"}); got != "**revenue** and Revenue" {
		t.Errorf("got %q", got)
	}
	if got := Highlight("no terms", nil); got != "no terms" {
		t.Errorf("got %q", got)
	}
}
