// Package dedup collapses exact and near-duplicate items.
package dedup

import (
	"io"
	"log/slog"
	"strings"

	"ThreatDigest/internal/disjointset"
	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/textutil"
)

// DefaultThreshold is the token Jaccard overlap at which two items are
// treated as the same story.
const DefaultThreshold = 0.8

// Result is the outcome of one deduplication pass.
type Result struct {
	Items []domain.Item
	// Absorbed maps a surviving item id to the ids it replaced.
	Absorbed   map[string][]string
	Duplicates int
	Skipped    int
}

// Deduplicator removes duplicates within a batch.
type Deduplicator struct {
	threshold float64
	logger    *slog.Logger
}

// New validates threshold, which must lie in (0,1].
func New(threshold float64, logger *slog.Logger) (*Deduplicator, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, &domain.ConfigError{Field: "thresholds.dedup", Reason: "must be in (0,1]"}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Deduplicator{threshold: threshold, logger: logger}, nil
}

// Deduplicate keeps one survivor per duplicate group, preserving input order.
// Identical fingerprints, ids or titles (case-insensitive) always collapse;
// otherwise items whose token overlap reaches the threshold collapse.
// Groups are transitive.
func (d *Deduplicator) Deduplicate(items []domain.Item) Result {
	res := Result{Absorbed: map[string][]string{}}

	valid := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.NormalizedText) == "" {
			d.logger.Warn("skipping item without normalized text", "id", item.ID, "title", item.Title)
			res.Skipped++
			continue
		}
		valid = append(valid, item)
	}

	tokens := make([]map[string]struct{}, len(valid))
	for i := range valid {
		tokens[i] = textutil.Tokens(valid[i].NormalizedText)
	}

	set := disjointset.New(len(valid))
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			if d.duplicates(valid[i], valid[j], tokens[i], tokens[j]) {
				set.Union(i, j)
			}
		}
	}

	keep := make([]bool, len(valid))
	for _, group := range set.Groups() {
		best := group[0]
		for _, idx := range group[1:] {
			if preferred(valid[idx], valid[best]) {
				best = idx
			}
		}
		keep[best] = true

		survivor := valid[best]
		for _, idx := range group {
			if idx == best {
				continue
			}
			res.Absorbed[survivor.ID] = append(res.Absorbed[survivor.ID], valid[idx].ID)
			res.Duplicates++
			d.logger.Info("duplicate collapsed",
				"survivor", survivor.ID,
				"dropped", valid[idx].ID,
				"dropped_title", valid[idx].Title)
		}
	}

	res.Items = make([]domain.Item, 0, len(valid)-res.Duplicates)
	for i, item := range valid {
		if keep[i] {
			res.Items = append(res.Items, item)
		}
	}
	return res
}

func (d *Deduplicator) duplicates(a, b domain.Item, ta, tb map[string]struct{}) bool {
	if a.Fingerprint != "" && a.Fingerprint == b.Fingerprint {
		return true
	}
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	if ka, kb := titleKey(a.Title), titleKey(b.Title); ka != "" && ka == kb {
		return true
	}
	return textutil.Jaccard(ta, tb) >= d.threshold
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// preferred reports whether a should replace b as a group survivor: higher
// tier first, then earlier publication. Equal candidates keep the earlier
// input position, which callers guarantee by visiting in order.
func preferred(a, b domain.Item) bool {
	if a.Tier.Rank() != b.Tier.Rank() {
		return a.Tier.Rank() > b.Tier.Rank()
	}
	return a.PublishedAt.Before(b.PublishedAt)
}
