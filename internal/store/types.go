// Package store provides the search backend (Bleve full-text index) and
// the metadata catalog (SQLite) for indexed content.
package store

import (
	"context"
	"time"
)

// Document is one indexable unit: a whole content item, or one chunk of a
// long item. Content is expected to be normalized before it reaches the
// backend.
type Document struct {
	// ID uniquely identifies the document in the index.
	ID string

	// ParentID identifies the content item this document belongs to.
	// Equal to ID for unchunked items.
	ParentID string

	// ChunkIndex and TotalChunks describe the document's position within
	// its parent. 0 and 1 for unchunked items.
	ChunkIndex  int
	TotalChunks int

	// Content is the normalized searchable text.
	Content string

	// Author and Source are metadata fields, always searchable.
	Author string
	Source string

	// Keywords are the pre-extracted keyword set for the parent item.
	Keywords []string

	// UpdatedAt is when the parent item was last modified.
	UpdatedAt time.Time
}

// Stats describes the backend's current contents.
type Stats struct {
	// DocumentCount is the number of documents (chunks) in the index.
	DocumentCount int
}

// Backend is the search index sink. All calls are idempotent: indexing an
// existing parent replaces its documents, removing an absent parent is a
// no-op.
type Backend interface {
	// IndexItem stores the documents for one content item, replacing any
	// previously indexed documents of the same parent.
	IndexItem(ctx context.Context, docs []*Document) error

	// RemoveItem deletes every document belonging to the parent.
	RemoveItem(ctx context.Context, parentID string) error

	// ClearAll empties the index.
	ClearAll(ctx context.Context) error

	// Stats reports index statistics.
	Stats() Stats
}

// SearchResult is one hit from the backend's query surface.
type SearchResult struct {
	DocID    string
	ParentID string
	Score    float64
}

// ItemRecord is the metadata catalog's view of one indexed content item.
type ItemRecord struct {
	ID          string
	ContentHash string
	ChunkCount  int
	IndexedAt   time.Time
}
