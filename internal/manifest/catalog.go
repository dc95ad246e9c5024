// Package manifest tracks which archival objects have already reached the
// object store, so re-runs skip uploaded files without a network round trip.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog records uploaded object keys in uploads.db.
type Catalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewCatalog opens (and if needed initializes) the upload catalog.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	catalog := &Catalog{
		db:     db,
		dbPath: dbPath,
	}

	if err := catalog.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: failed to initialize schema: %w", err)
	}

	return catalog, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS uploads (
			object_key  TEXT PRIMARY KEY,
			source_file TEXT NOT NULL,
			uploaded_at TEXT NOT NULL
		)
	`)
	return err
}

// RecordUpload registers an uploaded object key. Recording the same key
// twice is a no-op, so catalog writes are idempotent across re-runs.
func (c *Catalog) RecordUpload(ctx context.Context, objectKey, sourceFile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO uploads (object_key, source_file, uploaded_at) VALUES (?, ?, ?)`,
		objectKey, sourceFile, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("manifest: failed to record upload %s: %w", objectKey, err)
	}
	return nil
}

// IsUploaded reports whether an object key has been recorded.
func (c *Catalog) IsUploaded(ctx context.Context, objectKey string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM uploads WHERE object_key = ?`, objectKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("manifest: failed to look up %s: %w", objectKey, err)
	}
	return true, nil
}

// Count returns the number of recorded uploads.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("manifest: failed to count uploads: %w", err)
	}
	return n, nil
}

// Close closes the catalog database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
