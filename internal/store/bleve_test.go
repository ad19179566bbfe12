package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemBackend(t *testing.T) *BleveBackend {
	t.Helper()
	b, err := NewBleveBackend("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func doc(id, parent, content string) *Document {
	return &Document{
		ID:          id,
		ParentID:    parent,
		ChunkIndex:  0,
		TotalChunks: 1,
		Content:     content,
		Author:      "tester",
		Source:      "notes",
		Keywords:    []string{"tester", "notes"},
		UpdatedAt:   time.Now(),
	}
}

func TestBleveBackend_IndexAndSearch(t *testing.T) {
	b := newMemBackend(t)
	ctx := context.Background()

	require.NoError(t, b.IndexItem(ctx, []*Document{doc("d1", "item-1", "meeting notes about quarterly planning")}))
	require.NoError(t, b.IndexItem(ctx, []*Document{doc("d2", "item-2", "grocery list for the weekend")}))

	results, err := b.Search(ctx, "quarterly planning", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DocID)
	assert.Equal(t, "item-1", results[0].ParentID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestBleveBackend_SearchNormalizesQuery(t *testing.T) {
	// Given: content with diacritics
	b := newMemBackend(t)
	ctx := context.Background()
	require.NoError(t, b.IndexItem(ctx, []*Document{doc("d1", "item-1", "cafe visit recap")}))

	// Then: accented and upper-case queries still match
	for _, q := range []string{"Café", "CAFE", "cafe"} {
		results, err := b.Search(ctx, q, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1, "query %q should match", q)
	}
}

func TestBleveBackend_IndexExistingParentReplacesDocuments(t *testing.T) {
	b := newMemBackend(t)
	ctx := context.Background()

	// Given: a parent indexed as two chunks
	require.NoError(t, b.IndexItem(ctx, []*Document{
		doc("c0", "item-1", "first half of a long document"),
		doc("c1", "item-1", "second half of a long document"),
	}))
	assert.Equal(t, 2, b.Stats().DocumentCount)

	// When: re-indexing the same parent as one document
	require.NoError(t, b.IndexItem(ctx, []*Document{doc("c0", "item-1", "rewritten shorter document")}))

	// Then: stale chunk is gone and new content matches
	assert.Equal(t, 1, b.Stats().DocumentCount)
	results, err := b.Search(ctx, "rewritten", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	stale, err := b.Search(ctx, "second half", 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestBleveBackend_IndexRejectsMixedParents(t *testing.T) {
	b := newMemBackend(t)

	err := b.IndexItem(context.Background(), []*Document{
		doc("d1", "item-1", "one"),
		doc("d2", "item-2", "two"),
	})

	assert.Error(t, err)
}

func TestBleveBackend_RemoveItem(t *testing.T) {
	b := newMemBackend(t)
	ctx := context.Background()

	require.NoError(t, b.IndexItem(ctx, []*Document{
		doc("c0", "item-1", "chunk zero"),
		doc("c1", "item-1", "chunk one"),
	}))
	require.NoError(t, b.IndexItem(ctx, []*Document{doc("d2", "item-2", "other item")}))

	require.NoError(t, b.RemoveItem(ctx, "item-1"))

	assert.Equal(t, 1, b.Stats().DocumentCount)

	// Removing an absent parent is a no-op.
	assert.NoError(t, b.RemoveItem(ctx, "item-1"))
	assert.NoError(t, b.RemoveItem(ctx, "never-indexed"))
}

func TestBleveBackend_ClearAll(t *testing.T) {
	b := newMemBackend(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.IndexItem(ctx, []*Document{doc("doc-"+id, "item-"+id, "content "+id)}))
	}
	require.Equal(t, 3, b.Stats().DocumentCount)

	require.NoError(t, b.ClearAll(ctx))

	assert.Equal(t, 0, b.Stats().DocumentCount)
	// Clearing an empty index is fine.
	assert.NoError(t, b.ClearAll(ctx))
}

func TestBleveBackend_EmptyQueryReturnsNoResults(t *testing.T) {
	b := newMemBackend(t)

	results, err := b.Search(context.Background(), "   ", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveBackend_ClosedIndexRejectsCalls(t *testing.T) {
	b := newMemBackend(t)
	require.NoError(t, b.Close())

	ctx := context.Background()
	assert.Error(t, b.IndexItem(ctx, []*Document{doc("d1", "item-1", "x")}))
	assert.Error(t, b.RemoveItem(ctx, "item-1"))
	assert.Error(t, b.ClearAll(ctx))
	_, err := b.Search(ctx, "x", 1)
	assert.Error(t, err)
	assert.Equal(t, Stats{}, b.Stats())
}

func TestBleveBackend_OnDiskLockExcludesSecondProcess(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/index.bleve"

	first, err := NewBleveBackend(path)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	_, err = NewBleveBackend(path)
	assert.Error(t, err)
}
