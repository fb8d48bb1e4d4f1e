package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/normalize"
)

var now = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReferenceTime = now
	cfg.Taxonomy = map[string][]string{
		"prompt_injection": {"prompt injection", "jailbreak"},
		"agentic":          {"agent", "tool calling"},
		"observability":    {"tracing", "audit"},
	}
	return cfg
}

func newItem(title, body string, tier domain.Tier, published time.Time) domain.Item {
	return domain.Item{
		ID:             title,
		Title:          title,
		Body:           body,
		Tier:           tier,
		PublishedAt:    published,
		NormalizedText: normalize.NormalizeText(title + " " + body),
	}
}

func weights(values ...float64) map[domain.Dimension]float64 {
	out := map[domain.Dimension]float64{}
	for i, d := range domain.Dimensions {
		out[d] = values[i]
	}
	return out
}

func TestNewEngineValidatesWeightSum(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Weights = weights(0.35, 0.25, 0.15, 0.15, 0.09)
	_, err := NewEngine(cfg)
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for sum 0.99, got %v", err)
	}

	cfg.Weights = weights(0.35, 0.25, 0.15, 0.15, 0.10)
	if _, err := NewEngine(cfg); err != nil {
		t.Fatalf("valid weights rejected: %v", err)
	}
}

func TestNewEngineRejectsMissingDimensionAndHalfLife(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	delete(cfg.Weights, domain.DimensionImpact)
	if _, err := NewEngine(cfg); err == nil {
		t.Fatalf("expected error for missing dimension")
	}

	cfg = testConfig()
	cfg.HalfLife = 0
	if _, err := NewEngine(cfg); err == nil {
		t.Fatalf("expected error for zero half-life")
	}
}

func TestScoresStayInRange(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(testConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	items := []domain.Item{
		newItem("Critical zero-day exploit", "jailbreak prompt injection agent tool calling tracing audit; patch, mitigation, checklist, guide, fix, detection", domain.TierHigh, now),
		newItem("Quiet news", "", domain.TierLow, now.AddDate(-1, 0, 0)),
		newItem("From the future", "agent", domain.TierMedium, now.Add(48*time.Hour)),
	}
	for _, it := range items {
		scored := e.Score(it)
		for _, d := range domain.Dimensions {
			if v := scored.Scores.Get(d); v < 0 || v > 1 {
				t.Fatalf("%s %s = %v out of [0,1]", it.Title, d, v)
			}
		}
		if scored.FinalScore < 0 || scored.FinalScore > 100 {
			t.Fatalf("final score %v out of range", scored.FinalScore)
		}
	}
}

func TestFinalScoreIsWeightedSum(t *testing.T) {
	t.Parallel()

	e, _ := NewEngine(testConfig())
	scored := e.Score(newItem("Agent jailbreak", "apply the patch", domain.TierHigh, now))

	s := scored.Scores
	if s.Credibility != 1 || s.Freshness != 1 {
		t.Fatalf("unexpected credibility/freshness: %+v", s)
	}
	if math.Abs(s.Relevance-0.5) > 1e-9 {
		t.Fatalf("relevance = %v, want 0.5 (2 keywords/5 + breadth 0.1)", s.Relevance)
	}
	if math.Abs(s.Practicality-0.2) > 1e-9 {
		t.Fatalf("practicality = %v, want 0.2", s.Practicality)
	}
	want := 100 * (0.35*0.5 + 0.25*1 + 0.15*0 + 0.15*1 + 0.10*0.2)
	if math.Abs(scored.FinalScore-want) > 1e-9 {
		t.Fatalf("final = %v, want %v", scored.FinalScore, want)
	}
}

func TestCredibilityTable(t *testing.T) {
	t.Parallel()

	want := map[domain.Tier]float64{domain.TierHigh: 1, domain.TierMedium: 0.6, domain.TierLow: 0.3}
	for tier, v := range want {
		if got := (Credibility{}).Score(domain.Item{Tier: tier}); got != v {
			t.Fatalf("%s = %v, want %v", tier, got, v)
		}
	}
}

func TestFreshnessHalfLifeAndMonotonicity(t *testing.T) {
	t.Parallel()

	f := Freshness{reference: now, halfLife: 72 * time.Hour}
	if got := f.Score(domain.Item{PublishedAt: now}); got != 1 {
		t.Fatalf("fresh item = %v, want 1", got)
	}
	if got := f.Score(domain.Item{PublishedAt: now.Add(-72 * time.Hour)}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("one half-life = %v, want 0.5", got)
	}
	newer := f.Score(domain.Item{PublishedAt: now.Add(-10 * time.Hour)})
	older := f.Score(domain.Item{PublishedAt: now.Add(-30 * time.Hour)})
	if newer < older {
		t.Fatalf("freshness not monotonic: newer %v < older %v", newer, older)
	}
}

func TestImpactAndRelevanceCaps(t *testing.T) {
	t.Parallel()

	e, _ := NewEngine(testConfig())
	scored := e.Score(newItem("critical severe zero-day exploit breach cve urgent", "prompt injection jailbreak agent tool calling tracing audit", domain.TierMedium, now))
	if scored.Scores.Impact != 1 {
		t.Fatalf("impact should cap at 1, got %v", scored.Scores.Impact)
	}
	if scored.Scores.Relevance != 1 {
		t.Fatalf("relevance should cap at 1, got %v", scored.Scores.Relevance)
	}
}

func TestClusterSizeBoostsRelevance(t *testing.T) {
	t.Parallel()

	e, _ := NewEngine(testConfig())
	alone := newItem("Agent news", "", domain.TierMedium, now)
	grouped := alone
	grouped.ClusterSize = 3

	a := e.Score(alone).Scores.Relevance
	g := e.Score(grouped).Scores.Relevance
	if math.Abs(g-a-0.1) > 1e-9 {
		t.Fatalf("cluster boost = %v, want 0.1", g-a)
	}
}

func TestScoreAllMatchesSequential(t *testing.T) {
	t.Parallel()

	e, _ := NewEngine(testConfig())
	var items []domain.Item
	for i := 0; i < 40; i++ {
		items = append(items, newItem("agent exploit", "patch now", domain.TierLow, now.Add(-time.Duration(i)*time.Hour)))
	}

	got, err := e.ScoreAll(context.Background(), items, 4)
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	for i := range items {
		if want := e.Score(items[i]); got[i].FinalScore != want.FinalScore || got[i].Scores != want.Scores {
			t.Fatalf("item %d differs from sequential scoring", i)
		}
	}
}

func TestAtKeepsWeightsAndMovesReference(t *testing.T) {
	t.Parallel()

	e, _ := NewEngine(testConfig())
	later := e.At(now.Add(72 * time.Hour))
	scored := later.Score(newItem("x", "", domain.TierMedium, now))
	if math.Abs(scored.Scores.Freshness-0.5) > 1e-9 {
		t.Fatalf("freshness = %v, want 0.5", scored.Scores.Freshness)
	}
}
