// Package textutil holds the lexical helpers shared by deduplication,
// tagging and scoring.
package textutil

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"shall": {}, "this": {}, "that": {}, "these": {}, "those": {}, "but": {},
	"then": {}, "from": {}, "with": {}, "about": {}, "into": {}, "its": {},
	"which": {}, "who": {}, "what": {}, "when": {}, "where": {}, "how": {}, "why": {},
	"not": {}, "can": {}, "our": {}, "your": {}, "their": {}, "they": {}, "you": {},
}

// CollapseSpace replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Words splits s into lowercase alphanumeric words.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokens returns the set of informative words in s: at least three runes
// long and not a stop word.
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(s) {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Empty sets never overlap.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// JaccardStrings is Jaccard over two string slices treated as sets.
func JaccardStrings(a, b []string) float64 {
	return Jaccard(setOf(a), setOf(b))
}

func setOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Phrase is a keyword prepared for word-boundary matching.
type Phrase struct {
	Raw     string
	pattern string
}

// NewPhrase normalizes keyword the same way Document normalizes text.
func NewPhrase(keyword string) Phrase {
	words := Words(keyword)
	if len(words) == 0 {
		return Phrase{Raw: keyword}
	}
	return Phrase{Raw: keyword, pattern: " " + strings.Join(words, " ") + " "}
}

// Document is text prepared for phrase lookups.
type Document struct {
	padded string
}

// NewDocument splits text into words so that phrases only match on word
// boundaries ("agent" does not match "management").
func NewDocument(text string) Document {
	words := Words(text)
	if len(words) == 0 {
		return Document{}
	}
	return Document{padded: " " + strings.Join(words, " ") + " "}
}

// Contains reports whether p occurs in d.
func (d Document) Contains(p Phrase) bool {
	if p.pattern == "" || d.padded == "" {
		return false
	}
	return strings.Contains(d.padded, p.pattern)
}

// CountMatches counts the distinct phrases of ps present in d.
func (d Document) CountMatches(ps []Phrase) int {
	n := 0
	for _, p := range ps {
		if d.Contains(p) {
			n++
		}
	}
	return n
}

// Phrases prepares every keyword, dropping blanks and duplicates.
func Phrases(keywords []string) []Phrase {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]Phrase, 0, len(keywords))
	for _, k := range keywords {
		p := NewPhrase(k)
		if p.pattern == "" {
			continue
		}
		if _, dup := seen[p.pattern]; dup {
			continue
		}
		seen[p.pattern] = struct{}{}
		out = append(out, p)
	}
	return out
}
