package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mileusna/crontab"

	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/jobs"
	"elva.app/accounting/internal/service"
)

// JobRunner is the subset of jobs.Runner the scheduler drives.
type JobRunner interface {
	Retention(ctx context.Context, scope service.RetentionScope) (*service.RetentionSummary, error)
	Reconcile(ctx context.Context, scope service.ReconcileScope) (*service.BatchResult, error)
	Analytics(ctx context.Context, scope service.AnalyticsScope) (*service.RebuildSummary, error)
	TrailingAnalyticsScope() service.AnalyticsScope
	AuditPurge(ctx context.Context) (int64, error)
}

// Schedule holds one cron expression per job. An empty expression disables the job.
type Schedule struct {
	Retention  string
	Reconcile  string
	Analytics  string
	AuditPurge string
}

type Scheduler struct {
	ctab     *crontab.Crontab
	runner   JobRunner
	schedule Schedule

	// one run per job at a time inside this process; redsync covers other processes.
	mu      sync.Mutex
	running map[jobs.Name]bool
}

func NewScheduler(runner JobRunner, schedule Schedule) *Scheduler {
	return &Scheduler{
		ctab:     crontab.New(),
		runner:   runner,
		schedule: schedule,
		running:  make(map[jobs.Name]bool),
	}
}

// Run registers the jobs and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "accounting.worker.scheduler",
	})

	entries := []struct {
		name jobs.Name
		spec string
	}{
		{jobs.Retention, s.schedule.Retention},
		{jobs.Reconcile, s.schedule.Reconcile},
		{jobs.Analytics, s.schedule.Analytics},
		{jobs.AuditPurge, s.schedule.AuditPurge},
	}

	for _, e := range entries {
		if e.spec == "" {
			slog.InfoContext(ctx, "job disabled", "job", e.name)
			continue
		}
		name := e.name
		if err := s.ctab.AddJob(e.spec, func() { s.Trigger(ctx, name) }); err != nil {
			s.ctab.Shutdown()
			return fmt.Errorf("scheduling %s job (%q): %w", name, e.spec, err)
		}
		slog.InfoContext(ctx, "job scheduled", "job", name, "schedule", e.spec)
	}

	<-ctx.Done()
	s.ctab.Shutdown()
	return nil
}

// Trigger runs one job synchronously. It reports false when the job was
// already running in this process.
func (s *Scheduler) Trigger(ctx context.Context, name jobs.Name) bool {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		slog.WarnContext(ctx, "previous run still in progress, skipping", "job", name)
		return false
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	// Errors are logged and counted by the runner.
	switch name {
	case jobs.Retention:
		_, _ = s.runner.Retention(ctx, service.RetentionScope{})
	case jobs.Reconcile:
		_, _ = s.runner.Reconcile(ctx, service.ReconcileScope{})
	case jobs.Analytics:
		_, _ = s.runner.Analytics(ctx, s.runner.TrailingAnalyticsScope())
	case jobs.AuditPurge:
		_, _ = s.runner.AuditPurge(ctx)
	default:
		slog.ErrorContext(ctx, "unknown job", "job", name)
		return false
	}
	return true
}
