package search

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/hyperjump/docfind/internal/vector"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

const (
	// NoPreview is returned when no sentence of a document mentions a query term.
	NoPreview = "No relevant preview available"
	// DocumentNotFound is returned as the preview of a document whose file is gone.
	DocumentNotFound = "Document not found"
)

// PreviewGenerator picks the sentence that best represents a match and
// highlights the query terms in it.
type PreviewGenerator struct {
	embedder          vector.TextEmbedder
	maxLength         int
	minSentenceLength int
	semanticWeight    float64
	keywordWeight     float64
	logger            *zap.Logger
}

// NewPreviewGenerator returns a generator that embeds sentences with embedder.
// Wrap the embedder in an embedding cache; sentences repeat across queries.
func NewPreviewGenerator(embedder vector.TextEmbedder, maxLength, minSentenceLength int, semanticWeight, keywordWeight float64, logger *zap.Logger) *PreviewGenerator {
	return &PreviewGenerator{
		embedder:          embedder,
		maxLength:         maxLength,
		minSentenceLength: minSentenceLength,
		semanticWeight:    semanticWeight,
		keywordWeight:     keywordWeight,
		logger:            utils.OrNop(logger),
	}
}

// Sentences splits text into trimmed sentence units of at least the minimum length.
func (p *PreviewGenerator) Sentences(text string) []string {
	parts := strings.Split(strings.ReplaceAll(text, "\n", " "), ".")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if utils.RuneLen(s) < p.minSentenceLength {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FromText returns the highlighted best sentence of text for the query terms
// and the normalized query vector.
func (p *PreviewGenerator) FromText(ctx context.Context, text string, terms []string, queryVec []float32) string {
	if len(terms) == 0 {
		return NoPreview
	}
	best := ""
	bestScore := 0.0
	found := false
	for _, sentence := range p.Sentences(text) {
		matches := countMatches(strings.ToLower(sentence), terms)
		if matches == 0 {
			continue
		}
		vec, err := p.embedder.Embed(ctx, sentence)
		if err != nil {
			p.logger.Warn("preview sentence embedding failed", zap.Error(err))
			continue
		}
		if len(vec) != len(queryVec) {
			continue
		}
		cos := vector.InnerProduct(utils.NormalizedCopy(vec), queryVec)
		score := p.semanticWeight*cos + p.keywordWeight*float64(matches)/float64(len(terms))
		if !found || score > bestScore {
			best, bestScore, found = sentence, score, true
		}
	}
	if !found {
		return NoPreview
	}
	return Highlight(utils.Truncate(best, p.maxLength), terms)
}

// ForDocument loads name through texts and returns its preview. A missing
// file yields DocumentNotFound.
func (p *PreviewGenerator) ForDocument(ctx context.Context, texts TextSource, name string, terms []string, queryVec []float32) (string, error) {
	text, err := texts.Text(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return DocumentNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return p.FromText(ctx, text, terms, queryVec), nil
}

// Highlight wraps every literal occurrence of each term in **markers**,
// processing terms in the given order. Matching is case-sensitive.
func Highlight(s string, terms []string) string {
	for _, t := range terms {
		if t == "" {
			continue
		}
		s = strings.ReplaceAll(s, t, "**"+t+"**")
	}
	return s
}
