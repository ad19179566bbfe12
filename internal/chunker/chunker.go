// Package chunker splits long text into bounded, ordered chunks sized for
// indexing, preferring sentence-boundary splits.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Word-budget defaults per chunk.
const (
	DefaultTargetWords = 1500
	DefaultMaxWords    = 2000
	DefaultMinWords    = 1000
)

// splitWindow is the number of words scanned on either side of the target
// when looking for a sentence boundary. Fixed regardless of configured
// chunk size.
const splitWindow = 50

// Config holds the word budgets for chunking.
type Config struct {
	// TargetWords is the preferred chunk size.
	TargetWords int

	// MaxWords is the hard upper bound on chunk size.
	MaxWords int

	// MinWords is the preferred lower bound. The final leftover chunk may
	// fall below it; it is emitted anyway rather than merged back.
	MinWords int
}

// DefaultConfig returns the standard word budgets.
func DefaultConfig() Config {
	return Config{
		TargetWords: DefaultTargetWords,
		MaxWords:    DefaultMaxWords,
		MinWords:    DefaultMinWords,
	}
}

// Validate rejects budgets that cannot produce bounded ordered chunks.
func (c Config) Validate() error {
	if c.TargetWords < 1 {
		return fmt.Errorf("target words must be >= 1, got %d", c.TargetWords)
	}
	if c.MaxWords < c.TargetWords {
		return fmt.Errorf("max words (%d) must be >= target words (%d)", c.MaxWords, c.TargetWords)
	}
	if c.MinWords < 0 || c.MinWords > c.TargetWords {
		return fmt.Errorf("min words (%d) must be between 0 and target words (%d)", c.MinWords, c.TargetWords)
	}
	return nil
}

// Chunk is a bounded, ordered slice of a document's text.
type Chunk struct {
	// ID uniquely identifies the chunk, derived from parent ID and index.
	ID string

	// ParentID identifies the source document.
	ParentID string

	// Index is the 0-based position of this chunk within the document.
	Index int

	// TotalChunks is the chunk count for the whole document; identical
	// across every chunk of one Split call.
	TotalChunks int

	// Content is the chunk text. For single-chunk documents it is the
	// source text verbatim; for split documents it is the chunk's words
	// joined by single spaces.
	Content string

	// WordCount is the number of words in Content.
	WordCount int

	// StartWord and EndWord are half-open word offsets into the source.
	StartWord int
	EndWord   int
}

// Chunker splits text according to its configured word budgets.
type Chunker struct {
	config Config
}

// New creates a chunker with default budgets.
func New() *Chunker {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a chunker with custom budgets. Zero fields fall
// back to defaults.
func NewWithConfig(cfg Config) *Chunker {
	if cfg.TargetWords == 0 {
		cfg.TargetWords = DefaultTargetWords
	}
	if cfg.MaxWords == 0 {
		cfg.MaxWords = DefaultMaxWords
	}
	if cfg.MinWords == 0 {
		cfg.MinWords = DefaultMinWords
	}
	return &Chunker{config: cfg}
}

// Split divides text into ordered chunks. Text at or under the target
// budget yields exactly one chunk carrying the input verbatim. Longer text
// is split preferentially at sentence boundaries found within the fixed
// window around the target size, falling back to a hard split at the
// target (clamped to the max). The final leftover is always emitted as the
// last chunk, however small. Indices are contiguous from 0 and every chunk
// reports the same total.
func (c *Chunker) Split(parentID, text string) []*Chunk {
	words := strings.Fields(text)

	if len(words) <= c.config.TargetWords {
		return []*Chunk{{
			ID:          chunkID(parentID, 0),
			ParentID:    parentID,
			Index:       0,
			TotalChunks: 1,
			Content:     text,
			WordCount:   len(words),
			StartWord:   0,
			EndWord:     len(words),
		}}
	}

	// First pass: compute split offsets.
	var bounds []int // end offset of each chunk
	pos := 0
	for pos < len(words) {
		remaining := len(words) - pos
		if remaining <= c.config.TargetWords {
			// Leftover becomes the final chunk, never merged back.
			bounds = append(bounds, len(words))
			break
		}
		bounds = append(bounds, c.splitPoint(words, pos))
		pos = bounds[len(bounds)-1]
	}

	// Second pass: materialize chunks with consistent totals.
	chunks := make([]*Chunk, len(bounds))
	start := 0
	for i, end := range bounds {
		content := strings.Join(words[start:end], " ")
		chunks[i] = &Chunk{
			ID:          chunkID(parentID, i),
			ParentID:    parentID,
			Index:       i,
			TotalChunks: len(bounds),
			Content:     content,
			WordCount:   end - start,
			StartWord:   start,
			EndWord:     end,
		}
		start = end
	}
	return chunks
}

// splitPoint chooses where the chunk starting at pos ends. It scans
// backward through the window around pos+target for a word ending a
// sentence; absent one, it splits exactly at the target, clamped to the
// max budget.
func (c *Chunker) splitPoint(words []string, pos int) int {
	target := pos + c.config.TargetWords

	hi := target + splitWindow
	if hi > len(words) {
		hi = len(words)
	}
	lo := target - splitWindow
	if lo <= pos {
		lo = pos + 1
	}

	split := target
	for i := hi; i >= lo; i-- {
		if endsSentence(words[i-1]) {
			split = i
			break
		}
	}

	if split-pos > c.config.MaxWords {
		split = pos + c.config.MaxWords
	}
	return split
}

// endsSentence reports whether a word terminates a sentence.
func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") ||
		strings.HasSuffix(word, "!") ||
		strings.HasSuffix(word, "?")
}

// Reassemble concatenates chunk contents in index order with a single
// separating space. The result matches the source at the token level;
// original whitespace is not preserved.
func Reassemble(chunks []*Chunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	return strings.Join(parts, " ")
}

// chunkID derives a stable chunk identifier from the parent ID and index.
func chunkID(parentID string, index int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s:%d", parentID, index))
	return hex.EncodeToString(h[:])[:16]
}
