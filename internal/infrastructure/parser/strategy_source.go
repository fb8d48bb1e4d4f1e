package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/ports"
	"ThreatDigest/internal/scanner"
)

// StrategySource implements RawItemSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []domain.SourceDescriptor
	logger   *slog.Logger
}

var _ ports.RawItemSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with configured sources.
func NewStrategySource(reg *scanner.Registry, sources []domain.SourceDescriptor, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Fetch runs every enabled source. A failing source is logged and skipped;
// the call fails only when no source could be scanned.
func (s *StrategySource) Fetch(ctx context.Context, since time.Time) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch", "sources", len(s.sources), "since", since.Format(time.RFC3339))

	var (
		aggregated []domain.RawItem
		attempted  int
		failed     int
		lastErr    error
	)
	for _, src := range s.sources {
		if !src.Enabled {
			s.debug("source disabled", "source", src.Name)
			continue
		}
		attempted++

		strategy, err := s.registry.Resolve(src.Type)
		if err != nil {
			failed++
			lastErr = fmt.Errorf("source %s: %w", src.Name, err)
			s.warn("unknown scanner", "source", src.Name, "type", src.Type)
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{Since: since, Source: src})
		if err != nil {
			failed++
			lastErr = fmt.Errorf("scan source %s: %w", src.Name, err)
			s.warn("source scan failed", "source", src.Name, "error", err)
			continue
		}

		for _, raw := range results {
			aggregated = append(aggregated, scanner.RawItemFor(src, raw))
		}
		s.debug("source produced items", "source", src.Name, "count", len(results))
	}

	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("all sources failed: %w", lastErr)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
