// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/types"
)

var _ types.Scheduler = (*Scheduler)(nil)

// Scheduler runs one-shot delayed actions such as message and file deletion.
// Scheduled actions cannot be cancelled; their errors and panics are logged
// and never reach the caller of After. Pending actions are dropped on Stop.
type Scheduler struct {
	cron    gocron.Scheduler
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. Call Start before actions can fire.
func New(m *metrics.Metrics) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    s,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins firing scheduled actions.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the context handed to running actions and shuts down.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.cron.Shutdown()
}

// After schedules action to run once, delay from now.
func (s *Scheduler) After(name string, delay time.Duration, action func(context.Context) error) {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	_, err := s.cron.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() { s.run(name, action) }),
		gocron.WithName(name),
	)
	if err != nil {
		slog.Error("schedule action failed", "name", name, "delay", delay, "error", err)
		return
	}
	slog.Debug("action scheduled", "name", name, "delay", delay)
}

func (s *Scheduler) run(name string, action func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.ScheduledRuns.WithLabelValues("panic").Inc()
			slog.Error("scheduled action panicked", "name", name, "panic", r)
		}
	}()

	if err := action(s.ctx); err != nil {
		s.metrics.ScheduledRuns.WithLabelValues("failed").Inc()
		slog.Warn("scheduled action failed", "name", name, "error", err)
		return
	}
	s.metrics.ScheduledRuns.WithLabelValues("ok").Inc()
	slog.Info("scheduled action done", "name", name)
}
