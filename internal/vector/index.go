// Package vector provides the dense vector index behind document retrieval.
package vector

import "context"

// VectorIndex stores unit-normalized document vectors under stable int64 IDs
// and answers k-nearest-neighbor queries by inner product.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) ([]int64, error)
	AddWithIDs(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Remove(ctx context.Context, ids []int64) error
	Rebuild(ctx context.Context, idToText map[int64]string, embedder TextEmbedder) error
	Vector(id int64) ([]float32, bool)
	IDs() []int64
	Save(path string) error
	Load(path string) error
	Reset()
	Size() int
	Dimensions() int
	Close() error
}

// Hit is a single search match. Position is the 0-based slot in the index,
// ID the document ID that owns the slot.
type Hit struct {
	Position int
	ID       int64
	Score    float64 // inner product of unit vectors, in [-1, 1]
}

// TextEmbedder is the part of an embedding provider needed for rebuilds.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
