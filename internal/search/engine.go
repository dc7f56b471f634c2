// Package search implements hybrid retrieval: dense similarity from the vector
// index blended with literal keyword overlap, plus sentence previews.
package search

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/internal/models"
	"github.com/hyperjump/docfind/internal/storage"
	"github.com/hyperjump/docfind/internal/vector"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

// TextSource returns the full text of a mapped document by canonical name.
// A missing file must yield an error wrapping fs.ErrNotExist.
type TextSource interface {
	Text(ctx context.Context, name string) (string, error)
}

// Engine runs hybrid search over a bundle.
type Engine struct {
	bundle   *bundle.Bundle
	embedder vector.TextEmbedder
	texts    TextSource
	preview  *PreviewGenerator
	config   config.SearchConfig
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(b *bundle.Bundle, embedder vector.TextEmbedder, texts TextSource, cfg config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		bundle:   b,
		embedder: embedder,
		texts:    texts,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger).Named("search")
	e.preview = NewPreviewGenerator(embedder, cfg.PreviewLength, cfg.MinSentenceLength, cfg.SemanticWeight, cfg.KeywordWeight, e.logger)
	return e
}

// Preview returns the preview generator used for results.
func (e *Engine) Preview() *PreviewGenerator {
	return e.preview
}

type candidate struct {
	hit    vector.Hit
	record storage.DocumentRecord
}

type scored struct {
	candidate
	text     string
	semantic float64
	keyword  float64
	combined float64
}

// Search runs q with defaults applied and wraps the results in a response.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	q.ApplyDefaults(e.config.DefaultLimit, e.config.MaxLimit, e.config.Threshold)
	results, err := e.Query(ctx, q.Query, q.Limit, q.ThresholdOr(e.config.Threshold))
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
	}, nil
}

// Query returns up to k documents whose combined score reaches threshold and
// that contain at least one query term, best first, each with a preview.
func (e *Engine) Query(ctx context.Context, query string, k int, threshold float64) ([]*models.SearchResult, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = e.config.DefaultLimit
	}
	qvec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rank(ctx, qvec, terms, k)
	if err != nil {
		return nil, err
	}

	kept := ranked[:0]
	for _, s := range ranked {
		if s.combined >= threshold && s.keyword > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) > k {
		kept = kept[:k]
	}

	results := make([]*models.SearchResult, 0, len(kept))
	for i, s := range kept {
		r := toResult(s, i+1)
		r.Preview = e.preview.FromText(ctx, s.text, terms, qvec)
		results = append(results, r)
	}
	e.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("candidates", len(ranked)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// FindSimilar ranks the candidate documents for query by combined score,
// keeping only those with keyword overlap. No threshold and no previews.
func (e *Engine) FindSimilar(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = e.config.DefaultLimit
	}
	qvec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	ranked, err := e.rank(ctx, qvec, terms, k)
	if err != nil {
		return nil, err
	}
	results := make([]*models.SearchResult, 0, k)
	for _, s := range ranked {
		if s.keyword == 0 {
			continue
		}
		results = append(results, toResult(s, len(results)+1))
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// PreviewDocument returns the preview of the indexed document name for query.
// A document that is mapped but whose file is gone previews as DocumentNotFound.
func (e *Engine) PreviewDocument(ctx context.Context, name, query string) (string, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return "", ErrEmptyQuery
	}
	if !e.bundle.Has(name) {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	qvec, err := e.embedQuery(ctx, query)
	if err != nil {
		return "", err
	}
	return e.preview.ForDocument(ctx, e.texts, name, terms, qvec)
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrSearchFailed, err)
	}
	return utils.NormalizedCopy(vec), nil
}

// rank fetches the candidates for qvec, scores them against the document
// texts and sorts them by combined score. Candidates whose text cannot be
// loaded are skipped.
func (e *Engine) rank(ctx context.Context, qvec []float32, terms []string, k int) ([]scored, error) {
	mult := e.config.CandidateMultiplier
	if mult <= 0 {
		mult = 2
	}
	var candidates []candidate
	err := e.bundle.View(func(s bundle.Snapshot) error {
		hits, err := s.Search(ctx, qvec, k*mult)
		if err != nil {
			return err
		}
		candidates = make([]candidate, 0, len(hits))
		for _, h := range hits {
			rec, ok := s.Lookup(h.ID)
			if !ok {
				e.logger.Warn("vector without mapping", zap.Int64("id", h.ID))
				continue
			}
			candidates = append(candidates, candidate{hit: h, record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.texts.Text(ctx, c.record.Path)
		if err != nil {
			e.logger.Debug("skipping candidate", zap.String("path", c.record.Path), zap.Error(err))
			continue
		}
		s := scored{
			candidate: c,
			text:      text,
			semantic:  SemanticScore(c.hit.Score),
			keyword:   KeywordScore(text, terms),
		}
		s.combined = e.config.SemanticWeight*s.semantic + e.config.KeywordWeight*s.keyword
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].combined > out[j].combined
	})
	return out, nil
}

func toResult(s scored, rank int) *models.SearchResult {
	return &models.SearchResult{
		ID:            s.record.ID,
		Path:          s.record.Path,
		Title:         filepath.Base(s.record.Path),
		Score:         s.combined,
		SemanticScore: s.semantic,
		KeywordScore:  s.keyword,
		Rank:          rank,
	}
}
