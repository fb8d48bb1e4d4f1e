package taxonomy

import (
	"reflect"
	"testing"

	"ThreatDigest/internal/domain"
)

func TestMatcherTagsItem(t *testing.T) {
	t.Parallel()

	m := NewMatcher(map[string][]string{
		"prompt_injection": {"prompt injection", "jailbreak"},
		"agentic":          {"agent", "tool calling"},
		"empty":            {" "},
	})
	if m.Len() != 2 {
		t.Fatalf("expected 2 usable tags, got %d", m.Len())
	}

	item := m.Tag(domain.Item{NormalizedText: "jailbreak lets an agent abuse tool calling; prompt injection again"})
	wantTags := []string{"agentic", "prompt_injection"}
	if !reflect.DeepEqual(item.Tags, wantTags) {
		t.Fatalf("tags = %v, want %v", item.Tags, wantTags)
	}
	wantKeywords := []string{"agent", "jailbreak", "prompt injection", "tool calling"}
	if !reflect.DeepEqual(item.Keywords, wantKeywords) {
		t.Fatalf("keywords = %v, want %v", item.Keywords, wantKeywords)
	}
}

func TestMatcherNoMatch(t *testing.T) {
	t.Parallel()

	m := NewMatcher(map[string][]string{"agentic": {"agent"}})
	tags, keywords := m.Match("asset management update")
	if len(tags) != 0 || len(keywords) != 0 {
		t.Fatalf("expected no matches, got %v %v", tags, keywords)
	}
}
