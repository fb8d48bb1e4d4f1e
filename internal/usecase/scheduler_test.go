package usecase

import (
	"context"
	"testing"
	"time"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualDriver) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestSchedulerRunsPipeline(t *testing.T) {
	t.Parallel()

	source := &fakeSource{raws: rawItems()}
	notifier := &fakeNotifier{}
	p := NewPipeline(PipelineDeps{Source: source, Digest: newEngine(t), Notifier: notifier})

	driver := &manualDriver{}
	s := NewScheduler(driver, p, CadenceWeekly)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("job was not registered")
	}

	driver.job(runAt)
	if !source.since.Equal(runAt.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("weekly cadence should look back seven days, got %v", source.since)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one published digest, got %d", len(notifier.messages))
	}

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop did not reach driver: %v", err)
	}
}
