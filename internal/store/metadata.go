package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Catalog is the SQLite-backed metadata catalog. It records what has been
// indexed (content hash, chunk count, timestamp) so the coordinator can
// detect unchanged items and report statistics without querying the
// search backend.
type Catalog struct {
	db *sql.DB
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	chunk_count  INTEGER NOT NULL,
	indexed_at   TIMESTAMP NOT NULL
);
`

// NewCatalog opens or creates a catalog database at path. Use ":memory:"
// for an ephemeral catalog in tests.
func NewCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// WAL allows a reader (status queries) alongside the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure catalog: %w", err)
	}

	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// SaveItem upserts the record for one indexed item.
func (c *Catalog) SaveItem(ctx context.Context, rec *ItemRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO items (id, content_hash, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count  = excluded.chunk_count,
			indexed_at   = excluded.indexed_at`,
		rec.ID, rec.ContentHash, rec.ChunkCount, rec.IndexedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", rec.ID, err)
	}
	return nil
}

// GetItem returns the record for an item, or nil when it was never
// indexed.
func (c *Catalog) GetItem(ctx context.Context, id string) (*ItemRecord, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, content_hash, chunk_count, indexed_at FROM items WHERE id = ?`, id)

	var rec ItemRecord
	var indexedAt time.Time
	if err := row.Scan(&rec.ID, &rec.ContentHash, &rec.ChunkCount, &indexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}
	rec.IndexedAt = indexedAt
	return &rec, nil
}

// DeleteItem removes an item's record. Deleting an absent item is a no-op.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// Clear removes every record, used by full rebuilds.
func (c *Catalog) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}

// Count returns the number of indexed items.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
