package storage

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"ThreatDigest/internal/domain"
)

func TestPublishedQuery(t *testing.T) {
	t.Parallel()

	query, args, err := publishedQuery([]string{"a", "b"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.HasPrefix(query, "SELECT id FROM digest_archive WHERE") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "id IN ($1,$2)") || !strings.Contains(query, "published_to_channel_at IS NOT NULL") {
		t.Fatalf("unexpected where clause: %s", query)
	}
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestMarkPublishedUpdate(t *testing.T) {
	t.Parallel()

	query, args, err := markPublishedUpdate([]string{"x"}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.HasPrefix(query, "UPDATE digest_archive SET published_to_channel_at = NOW()") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "id IN ($1)") || len(args) != 1 {
		t.Fatalf("unexpected where clause %s with %v", query, args)
	}
}

func TestArchiveInsert(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC)
	items := []domain.Item{
		{ID: "a", Title: "A", URL: "https://a", Source: "S", Tier: domain.TierHigh, PublishedAt: now, FetchedAt: now,
			Summary: &domain.Summary{Text: "t", WhyItMatters: "w", Mitigation: "m", Strategy: domain.StrategyFallback}},
		{ID: "b", Title: "B", URL: "https://b", Source: "S", Tier: domain.TierLow, PublishedAt: now, FetchedAt: now},
	}

	query, args, err := archiveInsert("run-1", items).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.HasPrefix(query, "INSERT INTO digest_archive (id,run_id,") {
		t.Fatalf("unexpected insert: %s", query)
	}
	if !strings.Contains(query, "ON CONFLICT (id) DO UPDATE") {
		t.Fatalf("missing upsert suffix: %s", query)
	}
	if want := 2 * len(archiveColumns); len(args) != want {
		t.Fatalf("expected %d args, got %d", want, len(args))
	}
	if !strings.Contains(query, "$44") {
		t.Fatalf("expected dollar placeholders up to $44: %s", query)
	}

	strategy := args[len(archiveColumns)-1].(sql.NullString)
	if !strategy.Valid || strategy.String != "fallback" {
		t.Fatalf("unexpected strategy arg: %+v", strategy)
	}
	missing := args[2*len(archiveColumns)-1].(sql.NullString)
	if missing.Valid {
		t.Fatalf("unsummarized item should store NULL summary strategy")
	}
}

func TestRepositoryWithoutDatabase(t *testing.T) {
	t.Parallel()

	repo := NewPostgresRepository(nil)
	ctx := context.Background()

	published, err := repo.AlreadyPublished(ctx, []string{"a"})
	if err != nil || len(published) != 0 {
		t.Fatalf("expected empty result without db, got %v / %v", published, err)
	}
	if err := repo.SaveArchive(ctx, "run", []domain.Item{{ID: "a"}}); err != nil {
		t.Fatalf("SaveArchive: %v", err)
	}
	if err := repo.MarkPublished(ctx, []string{"a"}); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
}
