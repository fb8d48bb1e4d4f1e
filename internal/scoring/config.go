package scoring

import (
	"fmt"
	"math"
	"time"

	"ThreatDigest/internal/domain"
)

// WeightTolerance bounds |Σweights − 1|.
const WeightTolerance = 0.001

// Config is the immutable input of an Engine.
type Config struct {
	Weights  map[domain.Dimension]float64
	HalfLife time.Duration
	// ReferenceTime is "now" for freshness decay.
	ReferenceTime time.Time

	Taxonomy map[string][]string
	// RelevanceSaturation is the keyword count that yields a full base relevance.
	RelevanceSaturation int
	BreadthBonus        float64
	ClusterBoost        float64

	ImpactHigh   []string
	ImpactMedium []string
	Practical    []string
}

// DefaultWeights returns the stock dimension weights.
func DefaultWeights() map[domain.Dimension]float64 {
	return map[domain.Dimension]float64{
		domain.DimensionRelevance:    0.35,
		domain.DimensionCredibility:  0.25,
		domain.DimensionImpact:       0.15,
		domain.DimensionFreshness:    0.15,
		domain.DimensionPracticality: 0.10,
	}
}

// DefaultConfig returns a config with the stock weights and keyword lists.
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		HalfLife:            72 * time.Hour,
		RelevanceSaturation: 5,
		BreadthBonus:        0.1,
		ClusterBoost:        0.05,
		ImpactHigh: []string{
			"critical", "severe", "zero-day", "widespread", "exploit", "exploited",
			"vulnerability", "breach", "cve", "actively exploited", "emergency", "urgent",
		},
		ImpactMedium: []string{
			"moderate", "important", "significant", "notable", "affected", "impacted", "exposure",
		},
		Practical: []string{
			"mitigation", "remediation", "fix", "patch", "solution", "recommendation",
			"best practice", "how to", "guide", "checklist", "implementation", "defense",
			"prevention", "detection", "configuration",
		},
	}
}

// Validate checks weights and numeric parameters.
func (c Config) Validate() error {
	total := 0.0
	for _, d := range domain.Dimensions {
		w, ok := c.Weights[d]
		if !ok {
			return &domain.ConfigError{Field: "scoring.weights." + string(d), Reason: "missing"}
		}
		if w < 0 || math.IsNaN(w) {
			return &domain.ConfigError{Field: "scoring.weights." + string(d), Reason: "must be non-negative"}
		}
		total += w
	}
	if len(c.Weights) != len(domain.Dimensions) {
		return &domain.ConfigError{Field: "scoring.weights", Reason: "unknown dimension present"}
	}
	if math.Abs(total-1) > WeightTolerance {
		return &domain.ConfigError{Field: "scoring.weights", Reason: fmt.Sprintf("sum to %.4f, want 1.0", total)}
	}
	if c.HalfLife <= 0 {
		return &domain.ConfigError{Field: "scoring.halfLife", Reason: "must be positive"}
	}
	if c.RelevanceSaturation <= 0 {
		return &domain.ConfigError{Field: "scoring.relevanceSaturation", Reason: "must be positive"}
	}
	if c.BreadthBonus < 0 || c.ClusterBoost < 0 {
		return &domain.ConfigError{Field: "scoring.bonus", Reason: "must be non-negative"}
	}
	return nil
}
