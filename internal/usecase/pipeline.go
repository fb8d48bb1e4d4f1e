package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"

	"ThreatDigest/internal/digest"
	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/ports"
)

// Cadence selects the lookback window of a run.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// Lookback returns how far back raw items are accepted.
func (c Cadence) Lookback() (time.Duration, error) {
	switch c {
	case CadenceDaily:
		return 24 * time.Hour, nil
	case CadenceWeekly:
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown cadence %q", string(c))
	}
}

// DigestRunner is the processing core as seen by the pipeline.
type DigestRunner interface {
	Run(ctx context.Context, raws []domain.RawItem, now time.Time) (digest.Result, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.RawItemSource
	Digest     DigestRunner
	Repository ports.ArchiveRepository
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the fetch, digest, archive and publish workflow.
type Pipeline struct {
	source     ports.RawItemSource
	digest     DigestRunner
	repository ports.ArchiveRepository
	notifier   ports.Notifier
	logger     *slog.Logger
}

// Outcome describes one pipeline execution.
type Outcome struct {
	Cadence   Cadence
	Fetched   int
	Stale     int
	Report    digest.Report
	Published int
	Skipped   int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		source:     deps.Source,
		digest:     deps.Digest,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// Process fetches raw items for the cadence window ending at now, runs the
// digest, archives every ranked item and publishes public items that were
// not published before.
func (p *Pipeline) Process(ctx context.Context, cadence Cadence, now time.Time) (Outcome, error) {
	outcome := Outcome{Cadence: cadence}
	lookback, err := cadence.Lookback()
	if err != nil {
		return outcome, err
	}
	if p.source == nil || p.digest == nil {
		return outcome, fmt.Errorf("pipeline is missing source or digest")
	}

	since := now.Add(-lookback)
	raws, err := p.source.Fetch(ctx, since)
	if err != nil {
		return outcome, fmt.Errorf("fetch: %w", err)
	}
	outcome.Fetched = len(raws)

	fresh := dropStale(raws, since)
	outcome.Stale = len(raws) - len(fresh)

	result, err := p.digest.Run(ctx, fresh, now)
	if err != nil {
		return outcome, fmt.Errorf("digest run: %w", err)
	}
	outcome.Report = result.Report
	log := p.logger.With("run", result.Report.RunID, "cadence", string(cadence))

	if p.repository != nil {
		if err := p.repository.SaveArchive(ctx, result.Report.RunID, result.Archive); err != nil {
			return outcome, fmt.Errorf("save archive: %w", err)
		}
	}

	publish := result.Public
	if p.repository != nil && len(publish) > 0 {
		ids := make([]string, len(publish))
		for i, item := range publish {
			ids[i] = item.ID
		}
		already, err := p.repository.AlreadyPublished(ctx, ids)
		if err != nil {
			return outcome, fmt.Errorf("load published: %w", err)
		}
		publish = publish[:0:0]
		for _, item := range result.Public {
			if already[item.ID] {
				outcome.Skipped++
				continue
			}
			publish = append(publish, item)
		}
	}

	if len(publish) == 0 || p.notifier == nil {
		log.Info("nothing to publish", "public", len(result.Public), "skipped", outcome.Skipped)
		return outcome, nil
	}

	message := BuildDigestMessage(cadence, publish, now)
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		return outcome, fmt.Errorf("publish digest: %w", err)
	}
	outcome.Published = len(publish)

	if p.repository != nil {
		ids := make([]string, len(publish))
		for i, item := range publish {
			ids[i] = item.ID
		}
		if err := p.repository.MarkPublished(ctx, ids); err != nil {
			return outcome, fmt.Errorf("mark published: %w", err)
		}
	}

	log.Info("digest published", "items", outcome.Published, "skipped", outcome.Skipped)
	return outcome, nil
}

// dropStale removes raws dated before since. Undated or unparseable items
// are kept; the normalizer stamps them with the fetch time.
func dropStale(raws []domain.RawItem, since time.Time) []domain.RawItem {
	fresh := make([]domain.RawItem, 0, len(raws))
	for _, raw := range raws {
		published := raw.PublishedAt
		if published.IsZero() && raw.PublishedText != "" {
			if parsed, err := dateparse.ParseIn(strings.TrimSpace(raw.PublishedText), time.UTC); err == nil {
				published = parsed
			}
		}
		if !published.IsZero() && published.Before(since) {
			continue
		}
		fresh = append(fresh, raw)
	}
	return fresh
}

// BuildDigestMessage renders the public view as a Telegram Markdown message.
func BuildDigestMessage(cadence Cadence, items []domain.Item, now time.Time) string {
	if len(items) == 0 {
		return ""
	}

	title := "Daily"
	if cadence == CadenceWeekly {
		title = "Weekly"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*AI Security %s Digest* (%s)\n", title, now.UTC().Format("2 Jan 2006"))
	fmt.Fprintf(&b, "%s\n\n", pluralItems(len(items)))

	for i, item := range items {
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, escapeMarkdown(item.Title))
		fmt.Fprintf(&b, "%s · %s · score %.0f\n",
			escapeMarkdown(item.Source),
			humanize.RelTime(item.PublishedAt, now, "ago", "from now"),
			item.FinalScore)
		if item.Summary != nil {
			fmt.Fprintf(&b, "%s\n", escapeMarkdown(item.Summary.Text))
			fmt.Fprintf(&b, "_Why it matters:_ %s\n", escapeMarkdown(item.Summary.WhyItMatters))
			fmt.Fprintf(&b, "_Mitigation:_ %s\n", escapeMarkdown(item.Summary.Mitigation))
		}
		fmt.Fprintf(&b, "[Read more](%s)\n\n", markdownLink(item.URL))
	}

	return strings.TrimRight(b.String(), "\n")
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return humanize.Comma(int64(n)) + " items"
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Inline link targets are not parsed for entities, but a literal ")" would
// end the target early.
var linkEscaper = strings.NewReplacer(")", "%29", " ", "%20")

func markdownLink(u string) string {
	return linkEscaper.Replace(u)
}
