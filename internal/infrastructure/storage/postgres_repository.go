package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/ports"
)

const archiveTable = "digest_archive"

// Schema creates the archive table when it is missing.
const Schema = `CREATE TABLE IF NOT EXISTS digest_archive (
    id                      TEXT PRIMARY KEY,
    run_id                  TEXT NOT NULL,
    title                   TEXT NOT NULL,
    url                     TEXT NOT NULL,
    source                  TEXT NOT NULL,
    category                TEXT NOT NULL DEFAULT '',
    tier                    TEXT NOT NULL,
    published_at            TIMESTAMPTZ NOT NULL,
    fetched_at              TIMESTAMPTZ NOT NULL,
    tags                    TEXT[] NOT NULL DEFAULT '{}',
    keywords                TEXT[] NOT NULL DEFAULT '{}',
    cluster_id              TEXT NOT NULL DEFAULT '',
    relevance               DOUBLE PRECISION NOT NULL,
    credibility             DOUBLE PRECISION NOT NULL,
    impact                  DOUBLE PRECISION NOT NULL,
    freshness               DOUBLE PRECISION NOT NULL,
    practicality            DOUBLE PRECISION NOT NULL,
    final_score             DOUBLE PRECISION NOT NULL,
    summary                 TEXT,
    why_it_matters          TEXT,
    mitigation              TEXT,
    summary_strategy        TEXT,
    published_to_channel_at TIMESTAMPTZ,
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var archiveColumns = []string{
	"id", "run_id", "title", "url", "source", "category", "tier",
	"published_at", "fetched_at", "tags", "keywords", "cluster_id",
	"relevance", "credibility", "impact", "freshness", "practicality", "final_score",
	"summary", "why_it_matters", "mitigation", "summary_strategy",
}

const upsertSuffix = `ON CONFLICT (id) DO UPDATE
SET run_id = EXCLUDED.run_id,
    tags = EXCLUDED.tags,
    keywords = EXCLUDED.keywords,
    cluster_id = EXCLUDED.cluster_id,
    relevance = EXCLUDED.relevance,
    credibility = EXCLUDED.credibility,
    impact = EXCLUDED.impact,
    freshness = EXCLUDED.freshness,
    practicality = EXCLUDED.practicality,
    final_score = EXCLUDED.final_score,
    summary = COALESCE(EXCLUDED.summary, digest_archive.summary),
    why_it_matters = COALESCE(EXCLUDED.why_it_matters, digest_archive.why_it_matters),
    mitigation = COALESCE(EXCLUDED.mitigation, digest_archive.mitigation),
    summary_strategy = COALESCE(EXCLUDED.summary_strategy, digest_archive.summary_strategy),
    updated_at = NOW()`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists the digest archive into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ArchiveRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the archive table if needed.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create archive table: %w", err)
	}
	return nil
}

// AlreadyPublished returns the subset of ids that were sent to the channel before.
func (r *PostgresRepository) AlreadyPublished(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := publishedQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build published query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveArchive upserts every ranked item of a run. Existing summaries are
// kept when the new row carries none.
func (r *PostgresRepository) SaveArchive(ctx context.Context, runID string, items []domain.Item) error {
	if r.db == nil || len(items) == 0 {
		return nil
	}

	query, args, err := archiveInsert(runID, items).ToSql()
	if err != nil {
		return fmt.Errorf("build archive upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert archive: %w", err)
	}
	return nil
}

// MarkPublished stamps the channel publication time on ids.
func (r *PostgresRepository) MarkPublished(ctx context.Context, ids []string) error {
	if r.db == nil || len(ids) == 0 {
		return nil
	}

	query, args, err := markPublishedUpdate(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build publish update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

func publishedQuery(ids []string) sq.SelectBuilder {
	return psql.Select("id").
		From(archiveTable).
		Where(sq.Eq{"id": ids}).
		Where(sq.NotEq{"published_to_channel_at": nil})
}

func markPublishedUpdate(ids []string) sq.UpdateBuilder {
	return psql.Update(archiveTable).
		Set("published_to_channel_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ids})
}

func archiveInsert(runID string, items []domain.Item) sq.InsertBuilder {
	insert := psql.Insert(archiveTable).Columns(archiveColumns...)
	for _, item := range items {
		var text, why, mitigation, strategy sql.NullString
		if item.Summary != nil {
			text = sql.NullString{String: item.Summary.Text, Valid: true}
			why = sql.NullString{String: item.Summary.WhyItMatters, Valid: true}
			mitigation = sql.NullString{String: item.Summary.Mitigation, Valid: true}
			strategy = sql.NullString{String: string(item.Summary.Strategy), Valid: true}
		}
		insert = insert.Values(
			item.ID, runID, item.Title, item.URL, item.Source, item.Category, string(item.Tier),
			item.PublishedAt, item.FetchedAt, pq.Array(nonNil(item.Tags)), pq.Array(nonNil(item.Keywords)), item.ClusterID,
			item.Scores.Relevance, item.Scores.Credibility, item.Scores.Impact,
			item.Scores.Freshness, item.Scores.Practicality, item.FinalScore,
			text, why, mitigation, strategy,
		)
	}
	return insert.Suffix(upsertSuffix)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
