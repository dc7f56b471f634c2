// Package indexer feeds documents from the PDF directory into the bundle:
// single files, whole-directory passes, reconciliation and full rebuilds.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/extract"
	"github.com/hyperjump/docfind/internal/fileid"
	"github.com/hyperjump/docfind/pkg/utils"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrUnsupported is returned for files the extractor cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Embedder embeds a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextLoader returns document text by canonical name and manages its cache.
type TextLoader interface {
	Text(ctx context.Context, name string) (string, error)
	Forget(name string)
	Reset() error
}

// Failure records a document that could not be processed.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result summarizes a batch operation.
type Result struct {
	Indexed int       `json:"indexed"`
	Skipped int       `json:"skipped"`
	Removed int       `json:"removed"`
	Failed  []Failure `json:"failed,omitempty"`
}

// Indexer extracts, embeds and adds documents to a bundle. Extraction and
// embedding run on a worker pool; bundle mutations are serialized by the bundle.
type Indexer struct {
	bundle   *bundle.Bundle
	embedder Embedder
	texts    TextLoader
	pool     *ants.Pool
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with a pool of workers goroutines.
func NewIndexer(b *bundle.Bundle, embedder Embedder, texts TextLoader, workers int, opts ...IndexerOption) (*Indexer, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	idx := &Indexer{
		bundle:   b,
		embedder: embedder,
		texts:    texts,
		pool:     pool,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger).Named("indexer")
	return idx, nil
}

// Close releases the worker pool.
func (idx *Indexer) Close() {
	idx.pool.Release()
}

// IndexFile extracts and ingests the document at path, which must live in the
// PDF directory. It returns the new document ID.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (int64, error) {
	name := fileid.CanonicalName(path)
	if !extract.Supported(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	idx.logger.Debug("indexing file", zap.String("name", name))
	text, err := idx.texts.Text(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", bundle.ErrFileNotFound, name)
		}
		return 0, err
	}
	id, err := idx.bundle.Ingest(ctx, name, Preprocess(text), idx.embedder)
	if err != nil {
		idx.texts.Forget(name)
		return 0, err
	}
	return id, nil
}

// Reindex replaces the document at path with its current contents.
func (idx *Indexer) Reindex(ctx context.Context, path string) (int64, error) {
	if _, err := idx.Remove(ctx, path); err != nil {
		return 0, err
	}
	return idx.IndexFile(ctx, path)
}

// Remove drops the document at path from the bundle and the text cache.
func (idx *Indexer) Remove(ctx context.Context, path string) (bool, error) {
	name := fileid.CanonicalName(path)
	removed, err := idx.bundle.RemoveDocument(ctx, name)
	if err != nil {
		return false, err
	}
	idx.texts.Forget(name)
	return removed, nil
}

// Clear empties the bundle and the text cache.
func (idx *Indexer) Clear(ctx context.Context) error {
	if err := idx.bundle.Clear(ctx); err != nil {
		return err
	}
	if err := idx.texts.Reset(); err != nil {
		idx.logger.Warn("text cache reset failed", zap.Error(err))
	}
	return nil
}

type prepared struct {
	name string
	vec  []float32
	err  error
}

// IndexDirectory ingests every supported file in the PDF directory that is not
// mapped yet. Files are extracted and embedded in parallel and added to the
// bundle in one batch, in file name order.
func (idx *Indexer) IndexDirectory(ctx context.Context) (*Result, error) {
	names, err := idx.listFiles()
	if err != nil {
		return nil, err
	}
	res := &Result{}
	var todo []string
	for _, name := range names {
		if idx.bundle.Has(name) {
			res.Skipped++
			continue
		}
		todo = append(todo, name)
	}
	if len(todo) == 0 {
		return res, nil
	}

	out := make([]prepared, len(todo))
	err = idx.parallel(len(todo), func(i int) {
		out[i] = idx.prepare(ctx, todo[i])
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	var vectors [][]float32
	for _, p := range out {
		if p.err != nil {
			idx.logger.Warn("skipping document", zap.String("name", p.name), zap.Error(p.err))
			res.Failed = append(res.Failed, Failure{Path: p.name, Error: p.err.Error()})
			continue
		}
		paths = append(paths, p.name)
		vectors = append(vectors, p.vec)
	}
	if len(paths) > 0 {
		added, err := idx.bundle.AddDocuments(ctx, paths, vectors)
		if err != nil {
			return nil, err
		}
		res.Indexed = len(added)
		res.Skipped += len(paths) - len(added)
	}
	idx.logger.Info("directory indexed",
		zap.Int("indexed", res.Indexed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (idx *Indexer) prepare(ctx context.Context, name string) prepared {
	text, err := idx.texts.Text(ctx, name)
	if err != nil {
		return prepared{name: name, err: err}
	}
	text = Preprocess(text)
	if text == "" {
		return prepared{name: name, err: fmt.Errorf("%w: %s", bundle.ErrEmptyText, name)}
	}
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return prepared{name: name, err: fmt.Errorf("embed %s: %w", name, err)}
	}
	return prepared{name: name, vec: vec}
}

// Sync reconciles the bundle with the PDF directory: rows whose file vanished
// are removed and new files are indexed. Existing IDs are kept.
func (idx *Indexer) Sync(ctx context.Context) (*Result, error) {
	removed := 0
	for _, rec := range idx.bundle.Records() {
		if _, err := os.Stat(idx.bundle.ResolvePath(rec.Path)); err == nil || !os.IsNotExist(err) {
			continue
		}
		ok, err := idx.Remove(ctx, rec.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			removed++
		}
	}
	res, err := idx.IndexDirectory(ctx)
	if err != nil {
		return nil, err
	}
	res.Removed = removed
	return res, nil
}

// RebuildAll re-embeds every mapped document from its current text. Documents
// whose text can no longer be loaded are dropped from the bundle.
func (idx *Indexer) RebuildAll(ctx context.Context) (*Result, error) {
	records := idx.bundle.Records()
	texts := make([]string, len(records))
	errs := make([]error, len(records))
	err := idx.parallel(len(records), func(i int) {
		text, err := idx.texts.Text(ctx, records[i].Path)
		if err == nil {
			text = Preprocess(text)
			if text == "" {
				err = fmt.Errorf("%w: %s", bundle.ErrEmptyText, records[i].Path)
			}
		}
		texts[i], errs[i] = text, err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	keep := make(map[int64]string, len(records))
	for i, rec := range records {
		if errs[i] != nil {
			idx.logger.Warn("dropping document from rebuild", zap.String("name", rec.Path), zap.Error(errs[i]))
			res.Failed = append(res.Failed, Failure{Path: rec.Path, Error: errs[i].Error()})
			res.Removed++
			continue
		}
		keep[rec.ID] = texts[i]
	}
	if err := idx.bundle.RebuildAll(ctx, keep, idx.embedder); err != nil {
		return nil, err
	}
	res.Indexed = len(keep)
	return res, nil
}

// parallel runs fn(0..n-1) on the pool and waits for all of them.
func (idx *Indexer) parallel(n int, fn func(i int)) error {
	var wg sync.WaitGroup
	var submitErr error
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if err := idx.pool.Submit(func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submit task: %w", err)
			break
		}
	}
	wg.Wait()
	return submitErr
}

// listFiles returns the supported regular files directly inside the PDF directory, sorted.
func (idx *Indexer) listFiles() ([]string, error) {
	entries, err := os.ReadDir(idx.bundle.PDFDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pdf directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !extract.Supported(e.Name()) {
			continue
		}
		info, err := os.Stat(filepath.Join(idx.bundle.PDFDir(), e.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
