package scoring

import (
	"math"
	"time"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/taxonomy"
	"ThreatDigest/internal/textutil"
)

// Scorer evaluates one dimension of an item. Implementations are pure.
type Scorer interface {
	Dimension() domain.Dimension
	Score(item domain.Item) float64
}

const maxClusterBoostSteps = 3

// Relevance counts taxonomy keyword hits, with bonuses for tag breadth and
// cluster size.
type Relevance struct {
	matcher      *taxonomy.Matcher
	saturation   int
	breadthBonus float64
	clusterBoost float64
}

func (Relevance) Dimension() domain.Dimension { return domain.DimensionRelevance }

func (r Relevance) Score(item domain.Item) float64 {
	tags, keywords := r.matcher.Match(item.NormalizedText)
	score := float64(len(keywords)) / float64(r.saturation)
	if len(tags) > 1 {
		score += r.breadthBonus * float64(len(tags)-1)
	}
	if item.ClusterSize > 1 {
		steps := min(item.ClusterSize-1, maxClusterBoostSteps)
		score += r.clusterBoost * float64(steps)
	}
	return math.Min(score, 1)
}

var tierScores = map[domain.Tier]float64{
	domain.TierHigh:   1.0,
	domain.TierMedium: 0.6,
	domain.TierLow:    0.3,
}

// Credibility is a lookup on the item's tier.
type Credibility struct{}

func (Credibility) Dimension() domain.Dimension { return domain.DimensionCredibility }

func (Credibility) Score(item domain.Item) float64 {
	if v, ok := tierScores[item.Tier]; ok {
		return v
	}
	return tierScores[domain.TierMedium]
}

// Impact weighs severity signals in title and body.
type Impact struct {
	high   []textutil.Phrase
	medium []textutil.Phrase
}

func (Impact) Dimension() domain.Dimension { return domain.DimensionImpact }

func (s Impact) Score(item domain.Item) float64 {
	doc := textutil.NewDocument(item.NormalizedText)
	score := 0.2*float64(doc.CountMatches(s.high)) + 0.1*float64(doc.CountMatches(s.medium))
	return math.Min(score, 1)
}

// Freshness decays exponentially with age: 2^(−age/halfLife).
type Freshness struct {
	reference time.Time
	halfLife  time.Duration
}

func (Freshness) Dimension() domain.Dimension { return domain.DimensionFreshness }

func (s Freshness) Score(item domain.Item) float64 {
	age := s.reference.Sub(item.PublishedAt)
	if age <= 0 {
		return 1
	}
	return clamp01(math.Exp2(-float64(age) / float64(s.halfLife)))
}

// Practicality counts actionable language in the body.
type Practicality struct {
	phrases []textutil.Phrase
}

func (Practicality) Dimension() domain.Dimension { return domain.DimensionPracticality }

func (s Practicality) Score(item domain.Item) float64 {
	doc := textutil.NewDocument(item.Body)
	return math.Min(0.2*float64(doc.CountMatches(s.phrases)), 1)
}

// PracticalTerms returns the actionable keywords present in body.
func (s Practicality) PracticalTerms(body string) []string {
	doc := textutil.NewDocument(body)
	var out []string
	for _, p := range s.phrases {
		if doc.Contains(p) {
			out = append(out, p.Raw)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
