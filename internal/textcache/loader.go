package textcache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/docfind/internal/fileid"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

// Extractor returns the text content of a file.
type Extractor interface {
	Extract(path string) (string, error)
}

// Loader resolves canonical names to files under a directory and returns their
// text, extracting on a cache miss.
type Loader struct {
	dir       string
	extractor Extractor
	cache     *Cache
	logger    *zap.Logger
}

// NewLoader returns a Loader for documents under dir. cache may be nil, in
// which case every call extracts.
func NewLoader(dir string, extractor Extractor, cache *Cache, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, extractor: extractor, cache: cache, logger: utils.OrNop(logger)}
}

// Text returns the text of the document stored as name. A missing file yields
// an error wrapping fs.ErrNotExist.
func (l *Loader) Text(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = fileid.CanonicalName(name)
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("document %s: %w", name, fs.ErrNotExist)
		}
		return "", err
	}
	fp := fileid.FingerprintInfo(info)
	if l.cache != nil {
		text, ok, err := l.cache.Get(name, fp)
		if err != nil {
			l.logger.Warn("text cache read failed", zap.String("name", name), zap.Error(err))
		} else if ok {
			return text, nil
		}
	}
	text, err := l.extractor.Extract(path)
	if err != nil {
		return "", err
	}
	if l.cache != nil {
		if err := l.cache.Put(name, fp, text); err != nil {
			l.logger.Warn("text cache write failed", zap.String("name", name), zap.Error(err))
		}
	}
	return text, nil
}

// Forget drops any cached text for name.
func (l *Loader) Forget(name string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(fileid.CanonicalName(name)); err != nil {
		l.logger.Warn("text cache delete failed", zap.String("name", name), zap.Error(err))
	}
}

// Reset drops every cached text.
func (l *Loader) Reset() error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Clear()
}

// Dir returns the document directory.
func (l *Loader) Dir() string {
	return l.dir
}
