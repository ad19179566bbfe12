// Package textutil provides text canonicalization and token extraction
// for search indexing and matching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks strips diacritics by decomposing, removing combining marks,
// and recomposing.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes text for indexing and matching:
// Unicode compatibility normalization (NFKC), lowercasing, diacritic
// folding, and whitespace trimming. Two strings that differ only by case,
// diacritics, or compatibility encoding normalize to the same value, and
// the result is a fixed point of Normalize itself.
func Normalize(s string) string {
	s = applyTransform(norm.NFKC, s)
	s = strings.ToLower(s)
	s = applyTransform(foldMarks, s)
	return strings.TrimSpace(s)
}

// NormalizePreservingCase performs compatibility normalization, diacritic
// folding, and trimming without lowercasing. Used for display-oriented
// normalization where original casing matters.
func NormalizePreservingCase(s string) string {
	s = applyTransform(norm.NFKC, s)
	s = applyTransform(foldMarks, s)
	return strings.TrimSpace(s)
}

// applyTransform runs a transformer over s, falling back to the input on
// malformed text rather than dropping content.
func applyTransform(t transform.Transformer, s string) string {
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize splits text into word-like units on punctuation and whitespace
// boundaries. Empty fragments are discarded. Input is expected to already
// be normalized; Tokenize does not lowercase or fold.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// UniqueTokens returns the deduplicated token set of s, preserving first
// occurrence order.
func UniqueTokens(s string) []string {
	tokens := Tokenize(s)
	seen := make(map[string]struct{}, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		unique = append(unique, tok)
	}
	return unique
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
