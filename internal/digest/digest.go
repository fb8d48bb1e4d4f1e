// Package digest runs the processing core: normalize, deduplicate, tag,
// cluster, score, rank and summarize one batch of raw items.
package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ThreatDigest/internal/cluster"
	"ThreatDigest/internal/dedup"
	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/normalize"
	"ThreatDigest/internal/rank"
	"ThreatDigest/internal/scoring"
	"ThreatDigest/internal/summarize"
	"ThreatDigest/internal/taxonomy"
)

// Settings is the resolved, immutable configuration of an Engine.
type Settings struct {
	Scoring          scoring.Config
	DedupThreshold   float64
	ClusterThreshold float64
	Filter           rank.Filter
	// ScoringWorkers bounds concurrent scoring; zero means unbounded.
	ScoringWorkers int
	Summarization  summarize.Options
	// SummarizePublicOnly limits summarization to the public view.
	SummarizePublicOnly bool
}

// Report counts what happened to a batch.
type Report struct {
	RunID              string
	Received           int
	Invalid            int
	Malformed          int
	Duplicates         int
	Kept               int
	Clusters           int
	Public             int
	SummarizedPrimary  int
	SummarizedFallback int
	Unsummarized       int
	PrimaryFailures    int
}

// Result is the output of one run.
type Result struct {
	Public   []domain.Item
	Archive  []domain.Item
	Clusters []domain.Cluster
	Absorbed map[string][]string
	Report   Report
}

// Engine owns every stage of the core.
type Engine struct {
	settings   Settings
	normalizer *normalize.Normalizer
	dedup      *dedup.Deduplicator
	tagger     *taxonomy.Matcher
	clusterer  *cluster.Clusterer
	scorer     *scoring.Engine
	dispatcher *summarize.Dispatcher
	logger     *slog.Logger
}

// New validates settings and wires the stages. Strategies are tried in the
// given order before the metadata fallback, which is always last.
func New(settings Settings, logger *slog.Logger, strategies ...summarize.Summarizer) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scorer, err := scoring.NewEngine(settings.Scoring)
	if err != nil {
		return nil, err
	}
	deduplicator, err := dedup.New(settings.DedupThreshold, logger.With("component", "dedup"))
	if err != nil {
		return nil, err
	}
	clusterer, err := cluster.New(settings.ClusterThreshold, logger.With("component", "cluster"))
	if err != nil {
		return nil, err
	}
	if settings.Filter.MinRelevance < 0 || settings.Filter.MinRelevance > 1 {
		return nil, &domain.ConfigError{Field: "thresholds.minRelevance", Reason: "must be in [0,1]"}
	}

	chain := append(append([]summarize.Summarizer{}, strategies...), summarize.NewFallbackMetadata(scorer.Practicality()))
	opts := settings.Summarization
	opts.Logger = logger.With("component", "summarize")

	tagger := taxonomy.NewMatcher(settings.Scoring.Taxonomy)
	if tagger.Len() == 0 {
		logger.Warn("taxonomy has no usable tags; relevance and clustering will be flat")
	}
	logger.Debug("digest engine configured", "tags", tagger.Len(), "strategies", len(chain))

	return &Engine{
		settings:   settings,
		normalizer: normalize.New(logger.With("component", "normalize")),
		dedup:      deduplicator,
		tagger:     tagger,
		clusterer:  clusterer,
		scorer:     scorer,
		dispatcher: summarize.NewDispatcher(opts, chain...),
		logger:     logger,
	}, nil
}

// Run processes raws as of now. It only fails when ctx is cancelled before
// scoring completes; every per-item problem is counted in the report.
func (e *Engine) Run(ctx context.Context, raws []domain.RawItem, now time.Time) (Result, error) {
	report := Report{RunID: uuid.NewString(), Received: len(raws)}
	log := e.logger.With("run", report.RunID)

	items := make([]domain.Item, 0, len(raws))
	for _, raw := range raws {
		item, err := e.normalizer.Normalize(raw, now)
		if err != nil {
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				return Result{}, err
			}
			report.Invalid++
			log.Warn("dropping invalid item", "error", err, "source", raw.SourceName)
			continue
		}
		item.Order = len(items)
		items = append(items, item)
	}

	deduped := e.dedup.Deduplicate(items)
	report.Malformed = deduped.Skipped
	report.Duplicates = deduped.Duplicates

	tagged := make([]domain.Item, len(deduped.Items))
	for i, item := range deduped.Items {
		tagged[i] = e.tagger.Tag(item)
	}

	clustered := e.clusterer.Cluster(tagged)

	scored, err := e.scorer.At(now).ScoreAll(ctx, clustered.Items, e.settings.ScoringWorkers)
	if err != nil {
		return Result{}, err
	}
	clusters := cluster.Representatives(clustered.Clusters, scored, true)

	views := rank.Build(scored, e.settings.Filter)

	targets := views.Archive
	if e.settings.SummarizePublicOnly {
		targets = views.Public
	}
	summarized, stats := e.dispatcher.SummarizeAll(ctx, targets)
	byID := make(map[string]domain.Item, len(summarized))
	for _, item := range summarized {
		byID[item.ID] = item
	}

	report.Kept = len(views.Archive)
	report.Clusters = len(clusters)
	report.Public = len(views.Public)
	report.SummarizedPrimary = stats.Primary
	report.SummarizedFallback = stats.Fallback
	report.Unsummarized = stats.Unsummarized + len(views.Archive) - len(targets)
	report.PrimaryFailures = stats.Failures

	log.Info("digest run complete",
		"received", report.Received,
		"invalid", report.Invalid,
		"malformed", report.Malformed,
		"duplicates", report.Duplicates,
		"kept", report.Kept,
		"clusters", report.Clusters,
		"public", report.Public,
		"primary", report.SummarizedPrimary,
		"fallback", report.SummarizedFallback)

	return Result{
		Public:   withSummaries(views.Public, byID),
		Archive:  withSummaries(views.Archive, byID),
		Clusters: clusters,
		Absorbed: deduped.Absorbed,
		Report:   report,
	}, nil
}

func withSummaries(ranked []domain.Item, byID map[string]domain.Item) []domain.Item {
	out := make([]domain.Item, len(ranked))
	for i, item := range ranked {
		if s, ok := byID[item.ID]; ok {
			item.Summary = s.Summary
		}
		out[i] = item
	}
	return out
}
