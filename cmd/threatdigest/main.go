package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ThreatDigest/internal/app"
	"ThreatDigest/internal/config"
	"ThreatDigest/internal/logging"
	"ThreatDigest/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "run a single digest and exit instead of following the schedule")
	cadence := flag.String("cadence", "", "override the configured cadence (daily or weekly)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env: cannot load %s: %v", *envFile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if *cadence != "" {
		cfg.Scheduler.Cadence = *cadence
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		err = application.Run(ctx, usecase.Cadence(cfg.Scheduler.Cadence))
	} else {
		err = application.Serve(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
