package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalog_SaveAndGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	rec := &ItemRecord{
		ID:          "item-1",
		ContentHash: "abc123",
		ChunkCount:  3,
		IndexedAt:   time.Now(),
	}
	require.NoError(t, c.SaveItem(ctx, rec))

	got, err := c.GetItem(ctx, "item-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "item-1", got.ID)
	assert.Equal(t, "abc123", got.ContentHash)
	assert.Equal(t, 3, got.ChunkCount)
	assert.WithinDuration(t, rec.IndexedAt, got.IndexedAt, 2*time.Second)
}

func TestCatalog_GetMissingReturnsNil(t *testing.T) {
	c := newTestCatalog(t)

	got, err := c.GetItem(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalog_SaveUpserts(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.SaveItem(ctx, &ItemRecord{ID: "item-1", ContentHash: "v1", ChunkCount: 1, IndexedAt: time.Now()}))
	require.NoError(t, c.SaveItem(ctx, &ItemRecord{ID: "item-1", ContentHash: "v2", ChunkCount: 2, IndexedAt: time.Now()}))

	got, err := c.GetItem(ctx, "item-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.ContentHash)
	assert.Equal(t, 2, got.ChunkCount)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCatalog_DeleteAndClear(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.SaveItem(ctx, &ItemRecord{ID: id, ContentHash: "h", ChunkCount: 1, IndexedAt: time.Now()}))
	}

	require.NoError(t, c.DeleteItem(ctx, "b"))
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Deleting an absent item is a no-op.
	require.NoError(t, c.DeleteItem(ctx, "b"))

	require.NoError(t, c.Clear(ctx))
	n, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
