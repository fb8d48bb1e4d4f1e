package usecase

import (
	"context"
	"time"

	"ThreatDigest/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	cadence  Cadence
}

// NewScheduler returns a helper to start/stop recurring digests.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, cadence Cadence) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, cadence: cadence}
}

// Start registers the pipeline with the provided scheduler. Run failures are
// logged by the job and do not stop the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.pipeline.Process(ctx, s.cadence, trigger); err != nil {
			s.pipeline.logger.Error("scheduled digest failed", "cadence", string(s.cadence), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
