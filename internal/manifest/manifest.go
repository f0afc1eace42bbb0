// Package manifest records which documents were indexed and with what content.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is the last indexed state of one document.
type Entry struct {
	Path      string
	Hash      string
	Chunks    int
	Store     string // identity of the vector store the chunks were written to
	IndexedAt time.Time
}

// Manifest wraps a SQLite database holding one Entry per document path.
type Manifest struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path TEXT PRIMARY KEY,
    hash TEXT NOT NULL,
    chunks INTEGER NOT NULL DEFAULT 0,
    store TEXT NOT NULL DEFAULT '',
    indexed_at DATETIME NOT NULL
);`

// Open creates or opens the manifest at path.
func Open(path string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}
	return open(path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
}

// OpenMemory creates an in-memory manifest (useful for testing).
func OpenMemory() (*Manifest, error) {
	return open(":memory:")
}

func open(dsn string) (*Manifest, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating manifest: %w", err)
	}
	return &Manifest{db: db}, nil
}

// migrate creates the schema and adds columns missing from older files.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('documents') WHERE name = 'store'`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.Exec(`ALTER TABLE documents ADD COLUMN store TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entry for path. ok is false when the document was never indexed.
func (m *Manifest) Get(ctx context.Context, path string) (e Entry, ok bool, err error) {
	err = m.db.QueryRowContext(ctx,
		`SELECT path, hash, chunks, store, indexed_at FROM documents WHERE path = ?`, path,
	).Scan(&e.Path, &e.Hash, &e.Chunks, &e.Store, &e.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading manifest entry %s: %w", path, err)
	}
	return e, true, nil
}

// Put inserts or replaces the entry for e.Path.
func (m *Manifest) Put(ctx context.Context, e Entry) error {
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now().UTC()
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO documents (path, hash, chunks, store, indexed_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, chunks = excluded.chunks,
		   store = excluded.store, indexed_at = excluded.indexed_at`,
		e.Path, e.Hash, e.Chunks, e.Store, e.IndexedAt)
	if err != nil {
		return fmt.Errorf("writing manifest entry %s: %w", e.Path, err)
	}
	return nil
}

// Invalidate clears the recorded hash of path so the next run re-indexes it. The
// entry itself stays, so the document is still pruned if it disappears.
func (m *Manifest) Invalidate(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `UPDATE documents SET hash = '' WHERE path = ?`, path); err != nil {
		return fmt.Errorf("invalidating manifest entry %s: %w", path, err)
	}
	return nil
}

// Delete removes the entry for path.
func (m *Manifest) Delete(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting manifest entry %s: %w", path, err)
	}
	return nil
}

// Paths lists every recorded document path in order.
func (m *Manifest) Paths(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing manifest: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (m *Manifest) Close() error { return m.db.Close() }
