package bundle

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/docfind/internal/fileid"
	"github.com/hyperjump/docfind/internal/models"
	"github.com/hyperjump/docfind/internal/storage"
	"github.com/hyperjump/docfind/internal/vector"
)

// Snapshot is a read-only view of the bundle, valid only inside View.
type Snapshot interface {
	Search(ctx context.Context, query []float32, k int) ([]vector.Hit, error)
	Lookup(id int64) (storage.DocumentRecord, bool)
	Size() int
}

type snapshot struct {
	b *Bundle
}

func (s snapshot) Search(ctx context.Context, query []float32, k int) ([]vector.Hit, error) {
	return s.b.index.Search(ctx, query, k)
}

func (s snapshot) Lookup(id int64) (storage.DocumentRecord, bool) {
	r, ok := s.b.records[id]
	return r, ok
}

func (s snapshot) Size() int {
	return s.b.index.Size()
}

// View runs fn under the read lock. Index and mapping do not change while fn runs.
func (b *Bundle) View(fn func(Snapshot) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(snapshot{b: b})
}

// Records returns every mapped document in ascending ID order.
func (b *Bundle) Records() []storage.DocumentRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortedRecordsLocked()
}

// Lookup returns the record for id.
func (b *Bundle) Lookup(id int64) (storage.DocumentRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.records[id]
	return r, ok
}

// Has reports whether a document with path's canonical name is mapped.
func (b *Bundle) Has(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasLocked(fileid.CanonicalName(path))
}

// Count returns the number of mapped documents.
func (b *Bundle) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Size returns the number of vectors in the index.
func (b *Bundle) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Size()
}

// Dimensions returns the vector dimension.
func (b *Bundle) Dimensions() int {
	return b.index.Dimensions()
}

// ResolvePath returns the on-disk location of the document named name.
func (b *Bundle) ResolvePath(name string) string {
	return filepath.Join(b.pdfDir, fileid.CanonicalName(name))
}

// PDFDir returns the managed document directory.
func (b *Bundle) PDFDir() string {
	return b.pdfDir
}

// IndexPath returns where the index blob is persisted.
func (b *Bundle) IndexPath() string {
	return b.indexPath
}

// Documents lists the mapped documents in ascending ID order and reports
// whether each backing file is still present.
func (b *Bundle) Documents() []models.DocumentInfo {
	records := b.Records()
	out := make([]models.DocumentInfo, 0, len(records))
	for _, r := range records {
		out = append(out, models.DocumentInfo{
			ID:      r.ID,
			Path:    r.Path,
			Title:   filepath.Base(r.Path),
			AddedAt: r.AddedAt,
			Exists:  fileExists(b.ResolvePath(r.Path)),
		})
	}
	return out
}

// Status summarizes the bundle. databasePath is only used to report its size.
func (b *Bundle) Status(databasePath string) models.IndexStatus {
	b.mu.RLock()
	st := models.IndexStatus{
		Documents:  len(b.records),
		Vectors:    b.index.Size(),
		Dimensions: b.index.Dimensions(),
		PDFDir:     b.pdfDir,
		IndexPath:  b.indexPath,
	}
	st.MissingVectors = b.missingLocked()
	b.mu.RUnlock()
	st.IndexBytes, _ = storage.DiskUsageBytes(b.indexPath)
	st.DatabaseBytes = storage.DatabaseBytes(databasePath)
	return st
}
