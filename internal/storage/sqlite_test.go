package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteMappingStore {
	t.Helper()
	store, err := NewSQLiteMappingStore(filepath.Join(t.TempDir(), "db", "vector_store.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteMappingStore_AddLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Add(ctx, 1, "report.pdf", now); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, 4, "pasta.pdf", now); err != nil {
		t.Fatal(err)
	}
	mapping, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mapping) != 2 || mapping[1] != "report.pdf" || mapping[4] != "pasta.pdf" {
		t.Errorf("mapping = %v", mapping)
	}
	if store.CurrentID() != 4 {
		t.Errorf("CurrentID = %d, want 4", store.CurrentID())
	}
	rec, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.AddedAt.Equal(now) {
		t.Errorf("AddedAt = %v, want %v", rec.AddedAt, now)
	}
}

func TestSQLiteMappingStore_AddUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Add(ctx, 1, "a.pdf", time.Now())
	if err := store.Add(ctx, 1, "b.pdf", time.Now()); err != nil {
		t.Fatal(err)
	}
	// Same path under a new id replaces the old row.
	if err := store.Add(ctx, 2, "b.pdf", time.Now()); err != nil {
		t.Fatal(err)
	}
	mapping, _ := store.Load(ctx)
	if len(mapping) != 1 || mapping[2] != "b.pdf" {
		t.Errorf("mapping = %v", mapping)
	}
}

func TestSQLiteMappingStore_AddValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Add(ctx, 0, "a.pdf", time.Now()); err == nil {
		t.Error("expected error for id 0")
	}
	if err := store.Add(ctx, 1, "", time.Now()); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteMappingStore_SaveReplacesAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Add(ctx, 1, "old.pdf", time.Now())
	_ = store.Add(ctx, 2, "gone.pdf", time.Now())

	records := []DocumentRecord{
		{ID: 1, Path: "old.pdf", AddedAt: time.Now()},
		{ID: 3, Path: "new.pdf", AddedAt: time.Now()},
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 3 {
		t.Errorf("list = %+v", list)
	}
	if store.CurrentID() != 3 {
		t.Errorf("CurrentID = %d", store.CurrentID())
	}
}

func TestSQLiteMappingStore_SaveIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Add(ctx, 1, "keep.pdf", time.Now())

	// A cancelled context aborts the transaction before any row is touched.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Save(cancelled, []DocumentRecord{{ID: 9, Path: "x.pdf"}}); err == nil {
		t.Fatal("expected error with cancelled context")
	}
	mapping, _ := store.Load(ctx)
	if mapping[1] != "keep.pdf" {
		t.Errorf("failed save must not drop rows, mapping = %v", mapping)
	}
}

func TestSQLiteMappingStore_RemoveClearCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Add(ctx, 1, "a.pdf", time.Now())
	_ = store.Add(ctx, 2, "b.pdf", time.Now())

	if err := store.Remove(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ctx, 99); err != nil {
		t.Errorf("removing unknown id should not error: %v", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("count after clear = %d", n)
	}
	if store.CurrentID() != 2 {
		t.Errorf("clear must keep the id cursor, got %d", store.CurrentID())
	}
}

func TestSQLiteMappingStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector_store.db")
	ctx := context.Background()
	store, err := NewSQLiteMappingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Add(ctx, 7, "seven.pdf", time.Now())
	store.Close()

	reopened, err := NewSQLiteMappingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	mapping, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mapping[7] != "seven.pdf" || reopened.CurrentID() != 7 {
		t.Errorf("mapping = %v cursor = %d", mapping, reopened.CurrentID())
	}
}

func TestParseTime(t *testing.T) {
	if got := parseTime("2024-01-02T03:04:05.123456"); got.Year() != 2024 || got.Nanosecond() != 123456000 {
		t.Errorf("zone-less timestamp parsed as %v", got)
	}
	if got := parseTime("not a time"); !got.IsZero() {
		t.Errorf("garbage should parse to zero time, got %v", got)
	}
}

func TestNewSQLiteMappingStore_memory(t *testing.T) {
	store, err := NewSQLiteMappingStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Add(context.Background(), 1, "a.pdf", time.Now()); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("count = %d", n)
	}
}
