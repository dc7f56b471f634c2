package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// legacyTimeLayout is the ISO-8601 form without a zone offset.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// SQLiteMappingStore implements MappingStore using SQLite.
type SQLiteMappingStore struct {
	db        *sql.DB
	mu        sync.Mutex
	currentID int64
}

var _ MappingStore = (*SQLiteMappingStore)(nil)

// NewSQLiteMappingStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. Use ":memory:" for a throwaway store.
func NewSQLiteMappingStore(dbPath string) (*SQLiteMappingStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteMappingStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		path TEXT UNIQUE NOT NULL,
		added_date TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Load returns every mapping and resets the ID cursor to the largest stored ID.
func (s *SQLiteMappingStore) Load(ctx context.Context) (map[int64]string, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	mapping := make(map[int64]string, len(records))
	var maxID int64
	for _, r := range records {
		mapping[r.ID] = r.Path
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	s.mu.Lock()
	s.currentID = maxID
	s.mu.Unlock()
	return mapping, nil
}

// Add upserts a row. A row with the same ID or the same path is replaced.
func (s *SQLiteMappingStore) Add(ctx context.Context, id int64, path string, addedAt time.Time) error {
	if id <= 0 {
		return fmt.Errorf("invalid document id %d", id)
	}
	if path == "" {
		return fmt.Errorf("document path is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, path, added_date) VALUES (?, ?, ?)`,
		id, path, formatTime(addedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %d: %w", id, err)
	}
	s.advance(id)
	return nil
}

// Save replaces every row with records in one transaction.
func (s *SQLiteMappingStore) Save(ctx context.Context, records []DocumentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents (id, path, added_date) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var maxID int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Path, formatTime(r.AddedAt)); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", r.ID, err)
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	s.advance(maxID)
	return nil
}

// Remove deletes the row for id. Removing an unknown ID is not an error.
func (s *SQLiteMappingStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	return nil
}

// List returns all rows ordered by ID.
func (s *SQLiteMappingStore) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, added_date FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var records []DocumentRecord
	for rows.Next() {
		var r DocumentRecord
		var added string
		if err := rows.Scan(&r.ID, &r.Path, &added); err != nil {
			return nil, err
		}
		r.AddedAt = parseTime(added)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the row for id, or ErrNotFound.
func (s *SQLiteMappingStore) Get(ctx context.Context, id int64) (*DocumentRecord, error) {
	var r DocumentRecord
	var added string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, added_date FROM documents WHERE id = ?`, id,
	).Scan(&r.ID, &r.Path, &added)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	r.AddedAt = parseTime(added)
	return &r, nil
}

// Count returns the number of rows.
func (s *SQLiteMappingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Clear deletes every row. The ID cursor is kept so IDs are not reused in this session.
func (s *SQLiteMappingStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// CurrentID returns the largest ID seen by Load, Add or Save.
func (s *SQLiteMappingStore) CurrentID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

func (s *SQLiteMappingStore) advance(id int64) {
	s.mu.Lock()
	if id > s.currentID {
		s.currentID = id
	}
	s.mu.Unlock()
}

// Close closes the database connection.
func (s *SQLiteMappingStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 and zone-less ISO-8601 timestamps; unparsable values yield the zero time.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(legacyTimeLayout, s); err == nil {
		return t
	}
	return time.Time{}
}
