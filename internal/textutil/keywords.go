package textutil

// MaxKeywords caps the number of content-derived keywords per item.
const MaxKeywords = 20

// minKeywordLength filters short tokens; only tokens longer than this are
// eligible as keywords.
const minKeywordLength = 3

// stopWords are common words excluded from keyword generation. Words of
// three characters or fewer are filtered by length before this list applies.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "been": {},
	"before": {}, "being": {}, "between": {}, "both": {}, "could": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {},
	"from": {}, "further": {}, "have": {}, "having": {}, "here": {},
	"into": {}, "just": {}, "like": {}, "more": {}, "most": {},
	"only": {}, "other": {}, "over": {}, "same": {}, "should": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "under": {}, "until": {},
	"very": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {},
}

// Keywords extracts a bounded keyword set from text for backend metadata.
// Content tokens must be longer than three characters and not stop words;
// at most MaxKeywords content keywords are returned. The author and source
// fields, when non-empty, are always included regardless of length.
func Keywords(text, author, source string) []string {
	seen := make(map[string]struct{})
	var keywords []string

	add := func(kw string) {
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	// Author and source are unconditional and do not count against the cap.
	add(Normalize(author))
	add(Normalize(source))

	count := 0
	for _, tok := range Tokenize(Normalize(text)) {
		if count >= MaxKeywords {
			break
		}
		if len([]rune(tok)) <= minKeywordLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		count++
	}

	return keywords
}
