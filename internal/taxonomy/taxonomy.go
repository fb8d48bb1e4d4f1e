// Package taxonomy assigns priority-topic tags to items.
package taxonomy

import (
	"sort"
	"strings"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/textutil"
)

type topic struct {
	tag     string
	phrases []textutil.Phrase
}

// Matcher resolves taxonomy keywords against item text.
type Matcher struct {
	topics []topic
}

// NewMatcher prepares tag → keywords; tags without usable keywords are ignored.
func NewMatcher(tags map[string][]string) *Matcher {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Matcher{}
	for _, name := range names {
		phrases := textutil.Phrases(tags[name])
		if strings.TrimSpace(name) == "" || len(phrases) == 0 {
			continue
		}
		m.topics = append(m.topics, topic{tag: name, phrases: phrases})
	}
	return m
}

// Len reports how many tags the matcher knows.
func (m *Matcher) Len() int {
	return len(m.topics)
}

// Match returns the sorted tags and the sorted distinct keywords found in text.
func (m *Matcher) Match(text string) (tags []string, keywords []string) {
	doc := textutil.NewDocument(text)
	seen := map[string]struct{}{}
	for _, t := range m.topics {
		hit := false
		for _, p := range t.phrases {
			if !doc.Contains(p) {
				continue
			}
			hit = true
			key := strings.ToLower(p.Raw)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				keywords = append(keywords, key)
			}
		}
		if hit {
			tags = append(tags, t.tag)
		}
	}
	sort.Strings(keywords)
	return tags, keywords
}

// Tag returns a copy of item carrying its tags and matched keywords.
func (m *Matcher) Tag(item domain.Item) domain.Item {
	item.Tags, item.Keywords = m.Match(item.NormalizedText)
	return item
}
