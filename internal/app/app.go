package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ThreatDigest/internal/config"
	"ThreatDigest/internal/digest"
	"ThreatDigest/internal/infrastructure/llm"
	"ThreatDigest/internal/infrastructure/ml"
	"ThreatDigest/internal/infrastructure/parser"
	"ThreatDigest/internal/infrastructure/scheduler"
	"ThreatDigest/internal/infrastructure/storage"
	"ThreatDigest/internal/infrastructure/telegram"
	"ThreatDigest/internal/logging"
	"ThreatDigest/internal/ports"
	"ThreatDigest/internal/scanner"
	"ThreatDigest/internal/summarize"
	"ThreatDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	db        *sql.DB
	logger    *slog.Logger
}

// New builds the application. Optional adapters (archive, Telegram, LLM
// strategies) are only wired when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivScanner(nil, baseLogger.With("component", "scanner.arxiv")))
	registry.Register(parser.NewFeedScanner(nil))

	source := parser.NewStrategySource(registry, cfg.SourceDescriptors(), baseLogger.With("component", "source"))

	var strategies []summarize.Summarizer
	if cfg.Summarization.Ollama.URL != "" {
		o := cfg.Summarization.Ollama
		strategies = append(strategies, llm.NewOllamaSummarizer(o.URL, o.Model, o.APIKey))
	}
	if cfg.Summarization.Service.URL != "" {
		strategies = append(strategies, ml.NewClient(cfg.Summarization.Service.URL, cfg.Summarization.Service.APIKey))
	}

	engine, err := digest.New(cfg.DigestSettings(), baseLogger.With("component", "digest"), strategies...)
	if err != nil {
		return nil, fmt.Errorf("build digest: %w", err)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	var repository ports.ArchiveRepository
	if cfg.Database.DSN != "" {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db)
		if cfg.Database.EnsureSchema {
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		app.db = db
		repository = repo
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		tg := cfg.Notifications.Telegram
		notifier = telegram.NewNotifier(tg.APIBase, tg.BotToken, tg.ChatID)
	}

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Digest:     engine,
		Repository: repository,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	driver, err := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Timezone,
		cfg.Scheduler.RunOnStart,
		baseLogger.With("component", "scheduler"),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.scheduler = usecase.NewScheduler(driver, app.pipeline, app.cadence())

	baseLogger.Info("application configured",
		"sources", len(cfg.Sources),
		"strategies", len(strategies)+1,
		"archive", repository != nil,
		"telegram", notifier != nil)
	return app, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (a *Application) cadence() usecase.Cadence {
	if a.cfg.Scheduler.Cadence == "" {
		return usecase.CadenceDaily
	}
	return usecase.Cadence(a.cfg.Scheduler.Cadence)
}

// Run performs a single digest for cadence; an empty cadence uses the configured one.
func (a *Application) Run(ctx context.Context, cadence usecase.Cadence) error {
	if cadence == "" {
		cadence = a.cadence()
	}
	now := time.Now().In(a.cfg.Scheduler.Location())
	outcome, err := a.pipeline.Process(ctx, cadence, now)
	if err != nil {
		return err
	}
	a.logger.Info("digest finished",
		"run", outcome.Report.RunID,
		"fetched", outcome.Fetched,
		"kept", outcome.Report.Kept,
		"published", outcome.Published)
	return nil
}

// Serve starts the cron schedule and blocks until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases the database handle, if any.
func (a *Application) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
