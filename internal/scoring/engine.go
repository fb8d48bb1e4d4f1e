// Package scoring computes the five dimension scores and the weighted total.
package scoring

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/taxonomy"
	"ThreatDigest/internal/textutil"
)

// Engine aggregates a fixed, ordered set of scorers.
type Engine struct {
	cfg     Config
	scorers []Scorer
}

// NewEngine validates cfg and fails with *domain.ConfigError when weights
// do not sum to 1 within WeightTolerance.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, scorers: buildScorers(cfg)}, nil
}

func buildScorers(cfg Config) []Scorer {
	return []Scorer{
		Relevance{
			matcher:      taxonomy.NewMatcher(cfg.Taxonomy),
			saturation:   cfg.RelevanceSaturation,
			breadthBonus: cfg.BreadthBonus,
			clusterBoost: cfg.ClusterBoost,
		},
		Credibility{},
		Impact{high: textutil.Phrases(cfg.ImpactHigh), medium: textutil.Phrases(cfg.ImpactMedium)},
		Freshness{reference: cfg.ReferenceTime, halfLife: cfg.HalfLife},
		Practicality{phrases: textutil.Phrases(cfg.Practical)},
	}
}

// At returns an engine sharing the validated configuration with a new
// freshness reference time.
func (e *Engine) At(reference time.Time) *Engine {
	cfg := e.cfg
	cfg.ReferenceTime = reference
	return &Engine{cfg: cfg, scorers: buildScorers(cfg)}
}

// Practicality exposes the practicality scorer for summary templates.
func (e *Engine) Practicality() Practicality {
	return Practicality{phrases: textutil.Phrases(e.cfg.Practical)}
}

// Score returns a copy of item annotated with dimension and final scores.
func (e *Engine) Score(item domain.Item) domain.Item {
	var scores domain.Scores
	for _, s := range e.scorers {
		scores = scores.With(s.Dimension(), clamp01(s.Score(item)))
	}
	total := 0.0
	for _, d := range domain.Dimensions {
		total += e.cfg.Weights[d] * scores.Get(d)
	}
	item.Scores = scores
	item.FinalScore = clamp(100*total, 0, 100)
	return item
}

// ScoreAll scores items concurrently with at most workers goroutines.
// Output order matches input order.
func (e *Engine) ScoreAll(ctx context.Context, items []domain.Item, workers int) ([]domain.Item, error) {
	out := make([]domain.Item, len(items))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.Score(items[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
