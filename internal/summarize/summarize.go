// Package summarize dispatches summary generation across an ordered chain
// of strategies.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ThreatDigest/internal/domain"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultFanOut  = 4
)

// Summarizer produces a summary for one item.
type Summarizer interface {
	Name() string
	Strategy() domain.Strategy
	Summarize(ctx context.Context, item domain.Item) (domain.Summary, error)
}

// ErrIncomplete is returned when a strategy yields a summary with empty fields.
var ErrIncomplete = errors.New("summary has empty fields")

// DispatchFailure records why a strategy could not summarize an item.
type DispatchFailure struct {
	Strategy string
	ItemID   string
	Err      error
}

func (f *DispatchFailure) Error() string {
	return fmt.Sprintf("summarizer %s failed for %s: %v", f.Strategy, f.ItemID, f.Err)
}

func (f *DispatchFailure) Unwrap() error { return f.Err }

// Stats counts how items were summarized.
type Stats struct {
	Primary      int
	Fallback     int
	Unsummarized int
	Failures     int
}

// Dispatcher tries each strategy in order until one succeeds.
type Dispatcher struct {
	chain   []Summarizer
	timeout time.Duration
	fanOut  int
	logger  *slog.Logger
}

// Options tunes a Dispatcher.
type Options struct {
	// Timeout bounds every single strategy attempt.
	Timeout time.Duration
	// FanOut bounds concurrent items in SummarizeAll.
	FanOut int
	Logger *slog.Logger
}

// NewDispatcher builds a dispatcher over chain, tried in order.
func NewDispatcher(opts Options, chain ...Summarizer) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FanOut <= 0 {
		opts.FanOut = DefaultFanOut
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	filtered := make([]Summarizer, 0, len(chain))
	for _, s := range chain {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &Dispatcher{chain: filtered, timeout: opts.Timeout, fanOut: opts.FanOut, logger: opts.Logger}
}

// Summarize returns a copy of item with its summary set by the first
// strategy that succeeds, plus the failures of the strategies tried before.
// Items that already carry a summary are returned unchanged.
func (d *Dispatcher) Summarize(ctx context.Context, item domain.Item) (domain.Item, []*DispatchFailure) {
	if item.Summary != nil {
		return item, nil
	}
	var failures []*DispatchFailure
	for _, s := range d.chain {
		summary, err := d.attempt(ctx, s, item)
		if err != nil {
			failure := &DispatchFailure{Strategy: s.Name(), ItemID: item.ID, Err: err}
			failures = append(failures, failure)
			d.logger.Warn("summarizer failed, trying next", "strategy", s.Name(), "id", item.ID, "error", err)
			continue
		}
		summary.Strategy = s.Strategy()
		item.Summary = &summary
		return item, failures
	}
	d.logger.Error("no summarizer succeeded", "id", item.ID, "attempts", len(failures))
	return item, failures
}

func (d *Dispatcher) attempt(ctx context.Context, s Summarizer, item domain.Item) (domain.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	summary, err := s.Summarize(ctx, item)
	if err != nil {
		return domain.Summary{}, err
	}
	if !summary.Complete() {
		return domain.Summary{}, ErrIncomplete
	}
	return summary, nil
}

// SummarizeAll summarizes items concurrently, bounded by the fan-out limit.
// The returned slice keeps input order regardless of completion order.
func (d *Dispatcher) SummarizeAll(ctx context.Context, items []domain.Item) ([]domain.Item, Stats) {
	out := make([]domain.Item, len(items))
	failures := make([]int, len(items))

	var g errgroup.Group
	g.SetLimit(d.fanOut)
	for i := range items {
		i := i
		g.Go(func() error {
			summarized, errs := d.Summarize(ctx, items[i])
			out[i] = summarized
			failures[i] = len(errs)
			return nil
		})
	}
	_ = g.Wait()

	var stats Stats
	for i, item := range out {
		stats.Failures += failures[i]
		switch {
		case item.Summary == nil:
			stats.Unsummarized++
		case item.Summary.Strategy == domain.StrategyPrimary:
			stats.Primary++
		default:
			stats.Fallback++
		}
	}
	return out, stats
}
