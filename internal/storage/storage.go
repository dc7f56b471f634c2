// Package storage persists the document ID to file name mapping.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record matches the requested ID or path.
var ErrNotFound = errors.New("document mapping not found")

// DocumentRecord is one row of the mapping: a stable ID, the canonical file
// name under the PDF directory, and when it was added.
type DocumentRecord struct {
	ID      int64     `json:"id"`
	Path    string    `json:"path"`
	AddedAt time.Time `json:"added_at"`
}

// MappingStore is the durable ID to path table.
type MappingStore interface {
	// Load returns every mapping and resets the ID cursor to max(id).
	Load(ctx context.Context) (map[int64]string, error)
	// Add upserts a single row, replacing any row with the same ID or path.
	Add(ctx context.Context, id int64, path string, addedAt time.Time) error
	// Save replaces the whole table with records.
	Save(ctx context.Context, records []DocumentRecord) error
	// Remove deletes the row for id.
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]DocumentRecord, error)
	Get(ctx context.Context, id int64) (*DocumentRecord, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	// CurrentID returns the ID cursor: the largest ID seen by Load or Add.
	CurrentID() int64
	Close() error
}
