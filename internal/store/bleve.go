package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/gofrs/flock"

	"github.com/inkwell-hq/inkdex/internal/textutil"
)

const (
	// TextTokenizerName is the name of the normalizing tokenizer.
	TextTokenizerName = "inkdex_tokenizer"

	// TextAnalyzerName is the name of the content analyzer.
	TextAnalyzerName = "inkdex_text"
)

func init() {
	_ = registry.RegisterTokenizer(TextTokenizerName, textTokenizerConstructor)
}

// BleveBackend implements Backend on a Bleve full-text index.
type BleveBackend struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	lock   *flock.Flock
	closed bool
}

// bleveDocument is the stored document shape.
type bleveDocument struct {
	ParentID string   `json:"parent_id"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
	Author   string   `json:"author"`
	Source   string   `json:"source"`
}

// NewBleveBackend opens or creates a Bleve index at path. An empty path
// creates an in-memory index for testing. On-disk indexes are guarded by
// a file lock so two indexer processes cannot share one index, and are
// validated for corruption before opening: a corrupt index is cleared and
// recreated rather than failing startup.
func NewBleveBackend(path string) (*BleveBackend, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &BleveBackend{index: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("index at %s is locked by another process", path)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		slog.Warn("search_index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w", path, removeErr)
		}
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, indexMapping)
	} else if err != nil && isCorruptionError(err) {
		slog.Warn("search_index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("index corrupted, cannot clear: %w", removeErr)
		}
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &BleveBackend{index: idx, path: path, lock: lock}, nil
}

// createIndexMapping builds the index mapping: normalized text analysis
// for content, keyword analysis for identity and metadata fields.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TextTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = TextAnalyzerName

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	storedKeywordField := bleve.NewTextFieldMapping()
	storedKeywordField.Analyzer = keyword.Name
	storedKeywordField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", contentField)
	doc.AddFieldMappingsAt("keywords", keywordField)
	doc.AddFieldMappingsAt("parent_id", storedKeywordField)
	doc.AddFieldMappingsAt("author", keywordField)
	doc.AddFieldMappingsAt("source", keywordField)

	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = TextAnalyzerName

	return indexMapping, nil
}

// IndexItem replaces the documents of one parent with docs. All documents
// must belong to the same parent; indexing an already-present parent
// behaves as an update.
func (b *BleveBackend) IndexItem(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	parentID := docs[0].ParentID
	for _, d := range docs[1:] {
		if d.ParentID != parentID {
			return fmt.Errorf("documents span multiple parents: %s and %s", parentID, d.ParentID)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	existing, err := b.docIDsForParent(ctx, parentID)
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, id := range existing {
		batch.Delete(id)
	}
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDocument{
			ParentID: doc.ParentID,
			Content:  doc.Content,
			Keywords: doc.Keywords,
			Author:   doc.Author,
			Source:   doc.Source,
		}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// RemoveItem deletes every document of the parent. Removing an absent
// parent is a no-op.
func (b *BleveBackend) RemoveItem(ctx context.Context, parentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	ids, err := b.docIDsForParent(ctx, parentID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// ClearAll empties the index by deleting every document.
func (b *BleveBackend) ClearAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	docCount, _ := b.index.DocCount()
	if docCount == 0 {
		return nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to enumerate documents: %w", err)
	}

	batch := b.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// Search returns documents matching the query text, best first. The query
// passes through the same normalizing analyzer as indexed content.
func (b *BleveBackend) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(query) == "" {
		return []*SearchResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit
	req.Fields = []string{"parent_id"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*SearchResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		parentID, _ := hit.Fields["parent_id"].(string)
		results = append(results, &SearchResult{
			DocID:    hit.ID,
			ParentID: parentID,
			Score:    hit.Score,
		})
	}
	return results, nil
}

// Stats reports index statistics.
func (b *BleveBackend) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return Stats{}
	}

	docCount, _ := b.index.DocCount()
	return Stats{DocumentCount: int(docCount)}
}

// Close closes the index and releases the process lock.
func (b *BleveBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.index != nil {
		err = b.index.Close()
	}
	if b.lock != nil {
		_ = b.lock.Unlock()
	}
	return err
}

// docIDsForParent returns all document IDs indexed under a parent.
// Caller holds the mutex.
func (b *BleveBackend) docIDsForParent(ctx context.Context, parentID string) ([]string, error) {
	docCount, _ := b.index.DocCount()
	if docCount == 0 {
		return nil, nil
	}

	termQuery := bleve.NewTermQuery(parentID)
	termQuery.SetField("parent_id")

	req := bleve.NewSearchRequest(termQuery)
	req.Size = int(docCount)

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to look up parent %s: %w", parentID, err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// validateIndexIntegrity checks a Bleve index directory before opening.
// Returns nil for a missing (to be created) or healthy index.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// isCorruptionError reports whether an open error indicates corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Verify interface implementation.
var _ Backend = (*BleveBackend)(nil)

// textTokenizerConstructor creates the normalizing tokenizer for Bleve.
func textTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &normalizingTokenizer{}, nil
}

// normalizingTokenizer analyzes text through the same normalization
// pipeline used at index time, so queries match regardless of case,
// diacritics, or compatibility encoding.
type normalizingTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *normalizingTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := textutil.Tokenize(textutil.Normalize(text))

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		// Best-effort offsets: normalization may shift byte positions,
		// so fall back to the running offset when the term is not found.
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}
