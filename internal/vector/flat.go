package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/docfind/pkg/utils"
)

// FlatIndex is an exact inner-product index. Every slot keeps its vector and
// owning ID, so removal compacts slots without re-embedding and IDs stay
// stable across removals and rebuilds.
type FlatIndex struct {
	dimensions int
	ids        []int64
	vectors    [][]float32
	positions  map[int64]int
	maxID      int64
	mu         sync.RWMutex
}

var _ VectorIndex = (*FlatIndex)(nil)

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		ids:        make([]int64, 0),
		vectors:    make([][]float32, 0),
		positions:  make(map[int64]int),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return "flat"
}

// Add normalizes and appends vectors, assigning IDs maxID+1..maxID+n in order.
// Nothing is appended when any vector has the wrong dimension.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkDimensions(vectors); err != nil {
		return nil, err
	}
	ids := make([]int64, len(vectors))
	for i := range vectors {
		ids[i] = f.maxID + int64(i) + 1
	}
	f.appendLocked(ids, vectors)
	return ids, nil
}

// AddWithIDs normalizes and appends vectors under caller-chosen IDs.
// Nothing is appended when any vector has the wrong dimension or any ID is already present.
func (f *FlatIndex) AddWithIDs(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkDimensions(vectors); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("invalid id %d: ids must be positive", id)
		}
		if _, ok := f.positions[id]; ok || seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		seen[id] = true
	}
	f.appendLocked(ids, vectors)
	return nil
}

func (f *FlatIndex) checkDimensions(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), f.dimensions)
		}
	}
	return nil
}

func (f *FlatIndex) appendLocked(ids []int64, vectors [][]float32) {
	for i, id := range ids {
		f.positions[id] = len(f.ids)
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, utils.NormalizedCopy(vectors[i]))
		if id > f.maxID {
			f.maxID = id
		}
	}
}

// Search returns up to k hits by descending inner product with the normalized query.
// Equal scores are ordered by lower position. An empty index yields an empty result.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	q := utils.NormalizedCopy(query)
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return []Hit{}, nil
	}
	hits := make([]Hit, len(f.ids))
	for i, vec := range f.vectors {
		hits[i] = Hit{Position: i, ID: f.ids[i], Score: InnerProduct(q, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Remove drops the slots owned by ids. Unknown IDs are ignored.
// Remaining slots keep their order and are renumbered contiguously.
func (f *FlatIndex) Remove(ctx context.Context, ids []int64) error {
	removeSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	newIDs := make([]int64, 0, len(f.ids))
	newVectors := make([][]float32, 0, len(f.vectors))
	for i, id := range f.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, f.vectors[i])
		}
	}
	f.ids = newIDs
	f.vectors = newVectors
	f.reindexLocked()
	return nil
}

// Rebuild replaces the contents with freshly embedded vectors for idToText, in
// ascending ID order. The index is left untouched if any embedding fails.
func (f *FlatIndex) Rebuild(ctx context.Context, idToText map[int64]string, embedder TextEmbedder) error {
	ids := make([]int64, 0, len(idToText))
	for id := range idToText {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := embedder.Embed(ctx, idToText[id])
		if err != nil {
			return fmt.Errorf("embed document %d: %w", id, err)
		}
		if len(vec) != f.dimensions {
			return fmt.Errorf("%w: document %d has %d dimensions, expected %d", ErrDimensionMismatch, id, len(vec), f.dimensions)
		}
		vectors[i] = utils.NormalizedCopy(vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	f.reindexLocked()
	for _, id := range ids {
		if id > f.maxID {
			f.maxID = id
		}
	}
	return nil
}

func (f *FlatIndex) reindexLocked() {
	f.positions = make(map[int64]int, len(f.ids))
	for i, id := range f.ids {
		f.positions[id] = i
	}
}

// Vector returns a copy of the stored (normalized) vector for id.
func (f *FlatIndex) Vector(id int64) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pos, ok := f.positions[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, f.dimensions)
	copy(out, f.vectors[pos])
	return out, true
}

// IDs returns the slot owners in position order.
func (f *FlatIndex) IDs() []int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]int64(nil), f.ids...)
}

// Reset empties the index. The ID high-water mark is kept so IDs are not reused.
func (f *FlatIndex) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = make([]int64, 0)
	f.vectors = make([][]float32, 0)
	f.positions = make(map[int64]int)
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// MaxID returns the highest ID ever stored in this index.
func (f *FlatIndex) MaxID() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.maxID
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
