package domain

import "strings"

// Dimension identifies one of the five scoring axes.
type Dimension string

const (
	DimensionRelevance    Dimension = "relevance"
	DimensionCredibility  Dimension = "credibility"
	DimensionImpact       Dimension = "impact"
	DimensionFreshness    Dimension = "freshness"
	DimensionPracticality Dimension = "practicality"
)

// Dimensions lists every dimension in aggregation order.
var Dimensions = []Dimension{
	DimensionRelevance,
	DimensionCredibility,
	DimensionImpact,
	DimensionFreshness,
	DimensionPracticality,
}

// Scores carries per-dimension values in [0,1].
type Scores struct {
	Relevance    float64
	Credibility  float64
	Impact       float64
	Freshness    float64
	Practicality float64
}

// Get returns the value stored for d.
func (s Scores) Get(d Dimension) float64 {
	switch d {
	case DimensionRelevance:
		return s.Relevance
	case DimensionCredibility:
		return s.Credibility
	case DimensionImpact:
		return s.Impact
	case DimensionFreshness:
		return s.Freshness
	case DimensionPracticality:
		return s.Practicality
	}
	return 0
}

// With returns a copy of s with d set to v.
func (s Scores) With(d Dimension, v float64) Scores {
	switch d {
	case DimensionRelevance:
		s.Relevance = v
	case DimensionCredibility:
		s.Credibility = v
	case DimensionImpact:
		s.Impact = v
	case DimensionFreshness:
		s.Freshness = v
	case DimensionPracticality:
		s.Practicality = v
	}
	return s
}

func normalizeWord(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
