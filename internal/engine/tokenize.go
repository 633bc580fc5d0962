package engine

import (
	"strings"

	"github.com/lazypower/synapse/internal/store"
)

// stopWords are high-frequency terms that carry no retrieval signal.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "was": true, "are": true, "were": true,
	"has": true, "have": true, "had": true, "not": true, "but": true,
	"can": true, "you": true, "your": true, "its": true, "it's": true,
	"all": true, "when": true, "what": true, "how": true, "why": true,
	"then": true, "than": true, "into": true, "out": true, "use": true,
	"using": true, "should": true, "would": true, "could": true,
}

// Tokenize splits text into lowercase tokens, stripping punctuation and
// stop words. Deterministic and order-preserving.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 1 { // skip single-char tokens
			tok := current.String()
			if !stopWords[tok] {
				tokens = append(tokens, tok)
			}
		}
		current.Reset()
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TagIndex maps a token or tag to the set of memory ids it appears in.
type TagIndex map[string]map[string]bool

// BuildTagIndex indexes records by their tags and by the tokens of their
// title, content, and rule. Cheap enough to rebuild per retrieval —
// O(total tokens) — so it always reflects the current record set.
func BuildTagIndex(records []store.MemoryRecord) TagIndex {
	index := TagIndex{}
	add := func(term, id string) {
		if term == "" {
			return
		}
		ids, ok := index[term]
		if !ok {
			ids = map[string]bool{}
			index[term] = ids
		}
		ids[id] = true
	}

	for _, rec := range records {
		for _, tag := range rec.Tags {
			add(strings.ToLower(tag), rec.ID)
		}
		for _, tok := range Tokenize(rec.Title) {
			add(tok, rec.ID)
		}
		for _, tok := range Tokenize(rec.Content) {
			add(tok, rec.ID)
		}
		for _, tok := range Tokenize(rec.Rule) {
			add(tok, rec.ID)
		}
	}
	return index
}
