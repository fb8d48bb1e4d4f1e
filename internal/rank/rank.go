// Package rank orders scored items and selects the public view.
package rank

import (
	"sort"
	"strings"

	"ThreatDigest/internal/domain"
)

// Filter selects which archived items are published.
type Filter struct {
	MinRelevance       float64
	ExcludedCategories []string
	// Limit caps the public view; zero or negative means no cap.
	Limit int
}

// Views holds both orderings produced by a ranking pass.
type Views struct {
	Archive []domain.Item
	Public  []domain.Item
}

// Rank sorts a copy of items by final score, then freshness, then
// credibility, all descending, then by ascending Order.
func Rank(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.Scores.Freshness != b.Scores.Freshness {
			return a.Scores.Freshness > b.Scores.Freshness
		}
		if a.Scores.Credibility != b.Scores.Credibility {
			return a.Scores.Credibility > b.Scores.Credibility
		}
		return a.Order < b.Order
	})
	return out
}

// Apply returns the ranked prefix of archive that passes f, truncated to f.Limit.
// archive must already be ranked.
func (f Filter) Apply(archive []domain.Item) []domain.Item {
	excluded := make(map[string]struct{}, len(f.ExcludedCategories))
	for _, c := range f.ExcludedCategories {
		excluded[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	public := make([]domain.Item, 0, len(archive))
	for _, item := range archive {
		if _, skip := excluded[strings.ToLower(item.Category)]; skip {
			continue
		}
		if item.Scores.Relevance < f.MinRelevance {
			continue
		}
		public = append(public, item)
		if f.Limit > 0 && len(public) == f.Limit {
			break
		}
	}
	return public
}

// Build ranks items and derives both views.
func Build(items []domain.Item, f Filter) Views {
	archive := Rank(items)
	return Views{Archive: archive, Public: f.Apply(archive)}
}
