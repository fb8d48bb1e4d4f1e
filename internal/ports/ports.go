package ports

import (
	"context"
	"time"

	"ThreatDigest/internal/domain"
)

// RawItemSource pulls raw records from configured upstream sources.
type RawItemSource interface {
	Fetch(ctx context.Context, since time.Time) ([]domain.RawItem, error)
}

// ArchiveRepository persists digest output and publication history.
type ArchiveRepository interface {
	AlreadyPublished(ctx context.Context, ids []string) (map[string]bool, error)
	SaveArchive(ctx context.Context, runID string, items []domain.Item) error
	MarkPublished(ctx context.Context, ids []string) error
}

// Notifier streams the public digest to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
