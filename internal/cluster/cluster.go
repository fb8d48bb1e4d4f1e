// Package cluster partitions deduplicated items into topic clusters.
package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"sort"
	"strings"

	"ThreatDigest/internal/disjointset"
	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/textutil"
)

// DefaultThreshold is the tag or keyword Jaccard overlap that links two items.
const DefaultThreshold = 0.5

// Result holds the clustered items, in input order, and the clusters sorted by id.
type Result struct {
	Items    []domain.Item
	Clusters []domain.Cluster
}

// Clusterer builds the similarity graph and its connected components.
type Clusterer struct {
	threshold float64
	logger    *slog.Logger
}

// New validates threshold, which must lie in (0,1].
func New(threshold float64, logger *slog.Logger) (*Clusterer, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, &domain.ConfigError{Field: "thresholds.cluster", Reason: "must be in (0,1]"}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Clusterer{threshold: threshold, logger: logger}, nil
}

// Cluster assigns every item to exactly one cluster. Items without
// normalized text are kept as singletons.
func (c *Clusterer) Cluster(items []domain.Item) Result {
	out := make([]domain.Item, len(items))
	copy(out, items)

	linkable := make([]bool, len(out))
	for i, item := range out {
		linkable[i] = strings.TrimSpace(item.NormalizedText) != ""
		if !linkable[i] {
			c.logger.Warn("item without normalized text kept as singleton cluster", "id", item.ID, "title", item.Title)
		}
	}

	set := disjointset.New(len(out))
	for i := 0; i < len(out); i++ {
		if !linkable[i] {
			continue
		}
		for j := i + 1; j < len(out); j++ {
			if linkable[j] && c.linked(out[i], out[j]) {
				set.Union(i, j)
			}
		}
	}

	clusters := make([]domain.Cluster, 0)
	for _, group := range set.Groups() {
		memberIDs := make([]string, len(group))
		for k, idx := range group {
			memberIDs[k] = out[idx].ID
		}
		sort.Strings(memberIDs)
		id := clusterID(memberIDs)
		for _, idx := range group {
			out[idx].ClusterID = id
			out[idx].ClusterSize = len(group)
		}
		clusters = append(clusters, domain.Cluster{ID: id, ItemIDs: memberIDs})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })

	clusters = Representatives(clusters, out, false)
	c.logger.Debug("clustering done", "items", len(out), "clusters", len(clusters))
	return Result{Items: out, Clusters: clusters}
}

func (c *Clusterer) linked(a, b domain.Item) bool {
	if textutil.JaccardStrings(a.Tags, b.Tags) >= c.threshold {
		return true
	}
	return textutil.JaccardStrings(a.Keywords, b.Keywords) >= c.threshold
}

// clusterID depends only on the sorted member ids, so it is independent of
// input order.
func clusterID(sortedMemberIDs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sortedMemberIDs, "\n")))
	return "cl-" + hex.EncodeToString(sum[:6])
}

// Representatives returns copies of clusters with RepresentativeID chosen
// among items. When scored is true the highest final score wins; publication
// recency breaks ties (and decides alone when unscored), then the smallest id.
func Representatives(clusters []domain.Cluster, items []domain.Item, scored bool) []domain.Cluster {
	byID := make(map[string]domain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	out := make([]domain.Cluster, len(clusters))
	for i, cl := range clusters {
		out[i] = cl
		var best *domain.Item
		for _, id := range cl.ItemIDs {
			candidate, ok := byID[id]
			if !ok {
				continue
			}
			if best == nil || better(candidate, *best, scored) {
				c := candidate
				best = &c
			}
		}
		if best != nil {
			out[i].RepresentativeID = best.ID
		}
	}
	return out
}

func better(a, b domain.Item, scored bool) bool {
	if scored && a.FinalScore != b.FinalScore {
		return a.FinalScore > b.FinalScore
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}
