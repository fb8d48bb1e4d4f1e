package normalize

import (
	"errors"
	"testing"
	"time"

	"ThreatDigest/internal/domain"
)

var fetchedAt = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func TestNormalizeStripsMarkupAndKeepsCasing(t *testing.T) {
	t.Parallel()

	n := New(nil)
	item, err := n.Normalize(domain.RawItem{
		Title:      "  New <b>Prompt</b>   Injection ",
		Link:       "HTTPS://Example.COM/post?utm_source=x&id=7#top",
		Summary:    "<p>Agents   can be <em>hijacked</em>.</p><script>alert(1)</script>",
		SourceName: "Example Blog",
		Category:   "research",
		Tier:       "HIGH",
	}, fetchedAt)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if item.Title != "New Prompt Injection" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Body != "Agents can be hijacked." {
		t.Fatalf("unexpected body: %q", item.Body)
	}
	if item.NormalizedText != "new prompt injection agents can be hijacked." {
		t.Fatalf("unexpected normalized text: %q", item.NormalizedText)
	}
	if item.URL != "https://example.com/post?id=7" {
		t.Fatalf("unexpected url: %q", item.URL)
	}
	if item.Tier != domain.TierHigh {
		t.Fatalf("unexpected tier: %s", item.Tier)
	}
	if !item.PublishedAt.Equal(fetchedAt) {
		t.Fatalf("missing timestamp should default to fetch time, got %v", item.PublishedAt)
	}
	if item.Fingerprint != Fingerprint(item.NormalizedText) {
		t.Fatalf("fingerprint must derive from normalized text")
	}
}

func TestNormalizeDefaultsAndParsesTimestamps(t *testing.T) {
	t.Parallel()

	n := New(nil)
	item, err := n.Normalize(domain.RawItem{
		Title:         "Patch released",
		Link:          "https://example.com/a",
		PublishedText: "Fri, 07 Nov 2025 09:30:00 GMT",
	}, fetchedAt)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if item.Tier != domain.TierMedium {
		t.Fatalf("expected medium default tier, got %s", item.Tier)
	}
	want := time.Date(2025, time.November, 7, 9, 30, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", item.PublishedAt, want)
	}

	bad, err := n.Normalize(domain.RawItem{Title: "x", Link: "https://example.com/b", PublishedText: "not a date"}, fetchedAt)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if !bad.PublishedAt.Equal(fetchedAt) {
		t.Fatalf("unparseable timestamp should fall back to fetch time")
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	n := New(nil)
	cases := map[string]domain.RawItem{
		"title": {Title: "  ", Link: "https://example.com"},
		"url":   {Title: "Headline", Link: ""},
	}
	for field, raw := range cases {
		_, err := n.Normalize(raw, fetchedAt)
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected ValidationError, got %v", field, err)
		}
		if vErr.Field != field {
			t.Fatalf("expected field %s, got %s", field, vErr.Field)
		}
	}
}

func TestItemIDIsStable(t *testing.T) {
	t.Parallel()

	a := ItemID("src", CanonicalURL("https://example.com/x?utm_medium=rss"))
	b := ItemID("src", CanonicalURL("https://EXAMPLE.com/x#frag"))
	if a != b {
		t.Fatalf("expected identical ids, got %s and %s", a, b)
	}
	if a == ItemID("other", CanonicalURL("https://example.com/x")) {
		t.Fatalf("ids must depend on the source")
	}
}
