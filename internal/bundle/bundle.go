// Package bundle keeps the vector index and the document mapping in step.
//
// A Bundle owns one VectorIndex and one MappingStore that share an ID space:
// every mapped document has exactly one vector under the same ID. All
// mutations go through the bundle, which holds its write lock for the whole
// mutate-and-persist sequence; readers use View for a consistent snapshot.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/docfind/internal/fileid"
	"github.com/hyperjump/docfind/internal/storage"
	"github.com/hyperjump/docfind/internal/vector"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

// Embedder embeds a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Bundle binds a vector index and a mapping store.
type Bundle struct {
	index     vector.VectorIndex
	store     storage.MappingStore
	pdfDir    string
	indexPath string
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	records map[int64]storage.DocumentRecord
	byName  map[string]int64
	lastID  int64
}

// Option configures a Bundle.
type Option func(*Bundle)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bundle) {
		b.logger = l
	}
}

// WithClock overrides the time source used for AddedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Bundle) {
		b.now = now
	}
}

// New returns a bundle over index and store. Documents are resolved under
// pdfDir and the index blob is persisted at indexPath. Call Load before use.
func New(index vector.VectorIndex, store storage.MappingStore, pdfDir, indexPath string, opts ...Option) *Bundle {
	b := &Bundle{
		index:     index,
		store:     store,
		pdfDir:    pdfDir,
		indexPath: indexPath,
		now:       time.Now,
		records:   make(map[int64]storage.DocumentRecord),
		byName:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = utils.OrNop(b.logger).Named("bundle")
	return b
}

// Load restores the index blob and the mapping. A missing or corrupt blob
// yields an empty index. Vectors without a mapping row are discarded; mapped
// documents without a vector stay mapped but unsearchable until RebuildAll
// (see MissingVectors). A blob of another dimension is an error, and a failed
// Load leaves the bundle empty.
func (b *Bundle) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = make(map[int64]storage.DocumentRecord)
	b.byName = make(map[string]int64)

	if err := b.index.Load(b.indexPath); err != nil {
		if !errors.Is(err, vector.ErrCorruptIndex) {
			return fmt.Errorf("load index: %w", err)
		}
		b.logger.Warn("index file is corrupt, starting with an empty index", zap.String("path", b.indexPath), zap.Error(err))
		b.index.Reset()
	}
	records, err := b.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load mapping: %w", err)
	}
	for _, r := range records {
		b.records[r.ID] = r
		b.byName[r.Path] = r.ID
		if r.ID > b.lastID {
			b.lastID = r.ID
		}
	}
	if cur := b.store.CurrentID(); cur > b.lastID {
		b.lastID = cur
	}

	var orphans []int64
	for _, id := range b.index.IDs() {
		if _, ok := b.records[id]; !ok {
			orphans = append(orphans, id)
		}
		if id > b.lastID {
			b.lastID = id
		}
	}
	if len(orphans) > 0 {
		b.logger.Warn("dropping vectors without mapping", zap.Int("count", len(orphans)))
		if err := b.index.Remove(ctx, orphans); err != nil {
			return fmt.Errorf("drop orphan vectors: %w", err)
		}
	}
	if missing := b.missingLocked(); missing > 0 {
		b.logger.Warn("mapped documents have no vector, run rebuild",
			zap.Int("missing", missing),
			zap.String("index_path", b.indexPath),
		)
	}
	b.logger.Info("bundle loaded",
		zap.Int("documents", len(b.records)),
		zap.Int("vectors", b.index.Size()),
	)
	return nil
}

// MissingVectors returns how many mapped documents have no vector in the index.
// It is non-zero only after loading a bundle whose blob was lost or stale.
func (b *Bundle) MissingVectors() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.missingLocked()
}

func (b *Bundle) missingLocked() int {
	n := 0
	for id := range b.records {
		if _, ok := b.index.Vector(id); !ok {
			n++
		}
	}
	return n
}

// checkLocked reports whether every index slot has a mapping row and vice versa.
func (b *Bundle) checkLocked() error {
	ids := b.index.IDs()
	if len(ids) != len(b.records) {
		return fmt.Errorf("%w: %d vectors, %d mapped documents", ErrConsistencyViolation, len(ids), len(b.records))
	}
	for _, id := range ids {
		if _, ok := b.records[id]; !ok {
			return fmt.Errorf("%w: vector %d has no mapping", ErrConsistencyViolation, id)
		}
		if id > b.lastID {
			b.lastID = id
		}
	}
	return nil
}

// Save persists the index blob and the full mapping.
func (b *Bundle) Save(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Save(ctx, b.sortedRecordsLocked()); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return b.saveIndexLocked()
}

func (b *Bundle) saveIndexLocked() error {
	if err := b.index.Save(b.indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// AddDocuments appends one vector per path. Every path is validated before
// anything is mutated: paths whose file is missing from the PDF directory,
// names already mapped or repeated in the batch, and vectors of the wrong
// dimension are skipped together with their vector. The survivors get fresh
// IDs in input order and the bundle is persisted.
func (b *Bundle) AddDocuments(ctx context.Context, paths []string, vectors [][]float32) ([]storage.DocumentRecord, error) {
	if len(paths) != len(vectors) {
		return nil, fmt.Errorf("paths and vectors length mismatch: %d != %d", len(paths), len(vectors))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	added, _, err := b.addLocked(ctx, paths, vectors)
	return added, err
}

// addLocked returns the added records and, per input, the reason it was skipped (nil if added).
func (b *Bundle) addLocked(ctx context.Context, paths []string, vectors [][]float32) ([]storage.DocumentRecord, []error, error) {
	skipped := make([]error, len(paths))
	var names []string
	var keep [][]float32
	seen := make(map[string]bool, len(paths))
	for i, p := range paths {
		name := fileid.CanonicalName(p)
		switch {
		case name == "":
			skipped[i] = fmt.Errorf("%w: %q", ErrInvalidPath, p)
		case seen[name] || b.hasLocked(name):
			skipped[i] = fmt.Errorf("%w: %s", ErrAlreadyIndexed, name)
		case len(vectors[i]) != b.index.Dimensions():
			skipped[i] = fmt.Errorf("%w: %s has %d dimensions, expected %d", vector.ErrDimensionMismatch, name, len(vectors[i]), b.index.Dimensions())
		case !fileExists(filepath.Join(b.pdfDir, name)):
			skipped[i] = fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		if skipped[i] != nil {
			b.logger.Warn("skipping document", zap.String("path", p), zap.Error(skipped[i]))
			continue
		}
		seen[name] = true
		names = append(names, name)
		keep = append(keep, vectors[i])
	}
	if len(names) == 0 {
		return []storage.DocumentRecord{}, skipped, nil
	}

	ids := make([]int64, len(names))
	for i := range names {
		ids[i] = b.lastID + int64(i) + 1
	}
	if err := b.index.AddWithIDs(ctx, ids, keep); err != nil {
		return nil, skipped, fmt.Errorf("add vectors: %w", err)
	}
	now := b.now()
	added := make([]storage.DocumentRecord, 0, len(names))
	for i, name := range names {
		rec := storage.DocumentRecord{ID: ids[i], Path: name, AddedAt: now}
		if err := b.store.Add(ctx, rec.ID, rec.Path, rec.AddedAt); err != nil {
			b.rollbackAddLocked(ctx, ids, added)
			return nil, skipped, fmt.Errorf("add mapping for %s: %w", name, err)
		}
		added = append(added, rec)
	}
	if err := b.saveIndexLocked(); err != nil {
		b.rollbackAddLocked(ctx, ids, added)
		return nil, skipped, err
	}
	for _, rec := range added {
		b.records[rec.ID] = rec
		b.byName[rec.Path] = rec.ID
	}
	b.lastID = ids[len(ids)-1]
	b.logger.Debug("documents added", zap.Int("count", len(added)), zap.Int64("last_id", b.lastID))
	return added, skipped, nil
}

func (b *Bundle) rollbackAddLocked(ctx context.Context, ids []int64, rows []storage.DocumentRecord) {
	if err := b.index.Remove(ctx, ids); err != nil {
		b.logger.Error("rollback: remove vectors", zap.Error(err))
	}
	for _, r := range rows {
		if err := b.store.Remove(ctx, r.ID); err != nil {
			b.logger.Error("rollback: remove mapping", zap.Int64("id", r.ID), zap.Error(err))
		}
	}
}

// Ingest embeds text and adds it as the document at path. Empty text is
// rejected with ErrEmptyText and a missing file with ErrFileNotFound; in
// neither case is anything recorded.
func (b *Bundle) Ingest(ctx context.Context, path, text string, embedder Embedder) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmptyText, path)
	}
	name := fileid.CanonicalName(path)
	if name == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if !fileExists(b.ResolvePath(name)) {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if b.Has(name) {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyIndexed, name)
	}
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}
	if len(vec) != b.index.Dimensions() {
		return 0, fmt.Errorf("%w: %s has %d dimensions, expected %d", vector.ErrDimensionMismatch, name, len(vec), b.index.Dimensions())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	added, skipped, err := b.addLocked(ctx, []string{name}, [][]float32{vec})
	if err != nil {
		return 0, err
	}
	if len(added) == 0 {
		return 0, skipped[0]
	}
	b.logger.Info("document indexed", zap.String("name", name), zap.Int64("id", added[0].ID))
	return added[0].ID, nil
}

// RemoveDocument drops the document stored under path's canonical name.
// Removing an unknown document is a logged no-op and returns false.
func (b *Bundle) RemoveDocument(ctx context.Context, path string) (bool, error) {
	name := fileid.CanonicalName(path)
	b.mu.Lock()
	defer b.mu.Unlock()

	var id int64
	found := false
	for _, r := range b.sortedRecordsLocked() {
		if r.Path == name {
			id, found = r.ID, true
			break
		}
	}
	if !found {
		b.logger.Info("document not indexed, nothing to remove", zap.String("name", name))
		return false, nil
	}
	rec := b.records[id]
	vec, _ := b.index.Vector(id)

	if err := b.store.Remove(ctx, id); err != nil {
		return false, fmt.Errorf("remove mapping for %s: %w", name, err)
	}
	if err := b.index.Remove(ctx, []int64{id}); err != nil {
		_ = b.store.Add(ctx, rec.ID, rec.Path, rec.AddedAt)
		return false, fmt.Errorf("remove vector for %s: %w", name, err)
	}
	if err := b.saveIndexLocked(); err != nil {
		if vec != nil {
			_ = b.index.AddWithIDs(ctx, []int64{id}, [][]float32{vec})
		}
		_ = b.store.Add(ctx, rec.ID, rec.Path, rec.AddedAt)
		return false, err
	}
	delete(b.records, id)
	delete(b.byName, name)
	b.logger.Info("document removed", zap.String("name", name), zap.Int64("id", id))
	return true, nil
}

// RebuildAll re-embeds the whole index from texts (id → text). Mapped IDs
// missing from texts are dropped from the mapping, and IDs in texts that are
// not mapped are ignored. Documents whose vector was lost get one back. If an
// embedding or the mapping write fails, the bundle is left as it was.
func (b *Bundle) RebuildAll(ctx context.Context, texts map[int64]string, embedder vector.TextEmbedder) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	keep := make(map[int64]string, len(texts))
	survivors := make([]storage.DocumentRecord, 0, len(texts))
	for _, r := range b.sortedRecordsLocked() {
		if text, ok := texts[r.ID]; ok {
			keep[r.ID] = text
			survivors = append(survivors, r)
		}
	}
	prevIDs := b.index.IDs()
	prevVectors := make([][]float32, 0, len(prevIDs))
	for _, id := range prevIDs {
		v, _ := b.index.Vector(id)
		prevVectors = append(prevVectors, v)
	}

	if err := b.index.Rebuild(ctx, keep, embedder); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	dropped := len(b.records) - len(survivors)
	if dropped > 0 {
		if err := b.store.Save(ctx, survivors); err != nil {
			b.index.Reset()
			if rerr := b.index.AddWithIDs(context.WithoutCancel(ctx), prevIDs, prevVectors); rerr != nil {
				b.logger.Error("rollback: restore vectors", zap.Error(rerr))
			}
			return fmt.Errorf("drop mappings: %w", err)
		}
		for id, r := range b.records {
			if _, ok := keep[id]; !ok {
				delete(b.byName, r.Path)
				delete(b.records, id)
			}
		}
	}
	if err := b.checkLocked(); err != nil {
		return err
	}
	if err := b.saveIndexLocked(); err != nil {
		return err
	}
	b.logger.Info("index rebuilt",
		zap.Int("documents", len(b.records)),
		zap.Int("dropped", dropped),
	)
	return nil
}

// Clear drops every vector and mapping row and deletes the index blob.
// IDs are not reused afterwards.
func (b *Bundle) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear mapping: %w", err)
	}
	b.index.Reset()
	b.records = make(map[int64]storage.DocumentRecord)
	b.byName = make(map[string]int64)
	if b.indexPath != "" {
		if err := os.Remove(b.indexPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove index file: %w", err)
		}
	}
	b.logger.Info("bundle cleared")
	return nil
}

func (b *Bundle) sortedRecordsLocked() []storage.DocumentRecord {
	out := make([]storage.DocumentRecord, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Bundle) hasLocked(name string) bool {
	_, ok := b.byName[name]
	return ok
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
