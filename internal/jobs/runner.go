package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"elva.app/accounting/common/id"
	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/metrics"
	"elva.app/accounting/internal/service"
)

type Name string

const (
	Retention  Name = "retention"
	Reconcile  Name = "reconcile"
	Analytics  Name = "analytics"
	AuditPurge Name = "audit_purge"
)

type Config struct {
	// Timeout bounds a single run. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	// RebuildDays is how many trailing days a scheduled analytics run recomputes.
	RebuildDays int
	Location    *time.Location
	Now         func() time.Time
}

// Runner executes the batch jobs with a run id, a span, a timeout and job metrics.
// Both the scheduler and the ops endpoints go through it.
type Runner struct {
	quota     service.QuotaService
	retention service.RetentionService
	analytics service.AnalyticsService
	audit     service.AuditService
	cfg       Config
}

func NewRunner(
	quota service.QuotaService,
	retention service.RetentionService,
	analytics service.AnalyticsService,
	audit service.AuditService,
	cfg Config,
) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RebuildDays <= 0 {
		cfg.RebuildDays = 1
	}
	return &Runner{
		quota:     quota,
		retention: retention,
		analytics: analytics,
		audit:     audit,
		cfg:       cfg,
	}
}

func (r *Runner) Retention(ctx context.Context, scope service.RetentionScope) (*service.RetentionSummary, error) {
	var summary *service.RetentionSummary
	err := r.run(ctx, Retention, func(ctx context.Context) (int, error) {
		var err error
		summary, err = r.retention.ApplyRetention(ctx, scope)
		if err != nil {
			return 0, err
		}
		slog.InfoContext(ctx, "retention applied",
			"deleted", summary.Deleted,
			"anonymized", summary.Anonymized,
			"widgets_processed", summary.WidgetsProcessed,
			"widgets_failed", summary.WidgetsFailed,
			"widgets_skipped", summary.WidgetsSkipped)
		return summary.WidgetsFailed, nil
	})
	return summary, err
}

func (r *Runner) Reconcile(ctx context.Context, scope service.ReconcileScope) (*service.BatchResult, error) {
	var result *service.BatchResult
	err := r.run(ctx, Reconcile, func(ctx context.Context) (int, error) {
		var err error
		result, err = r.quota.ReconcileAll(ctx, scope)
		if err != nil {
			return 0, err
		}
		slog.InfoContext(ctx, "usage reconciled",
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"skipped", result.Skipped)
		return result.Failed, nil
	})
	return result, err
}

func (r *Runner) Analytics(ctx context.Context, scope service.AnalyticsScope) (*service.RebuildSummary, error) {
	var summary *service.RebuildSummary
	err := r.run(ctx, Analytics, func(ctx context.Context) (int, error) {
		var err error
		summary, err = r.analytics.Rebuild(ctx, scope)
		if err != nil {
			return 0, err
		}
		slog.InfoContext(ctx, "analytics rebuilt",
			"days", summary.Days,
			"conversations", summary.Conversations,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped)
		return summary.Failed, nil
	})
	return summary, err
}

// TrailingAnalyticsScope covers the last RebuildDays calendar days, today included.
func (r *Runner) TrailingAnalyticsScope() service.AnalyticsScope {
	today := r.cfg.Now().In(r.cfg.Location)
	from := today.AddDate(0, 0, -(r.cfg.RebuildDays - 1)).Format(time.DateOnly)
	to := today.Format(time.DateOnly)
	return service.AnalyticsScope{From: &from, To: &to}
}

func (r *Runner) AuditPurge(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.run(ctx, AuditPurge, func(ctx context.Context) (int, error) {
		var err error
		deleted, err = r.audit.PurgeExpired(ctx)
		if err != nil {
			return 0, err
		}
		slog.InfoContext(ctx, "expired audit entries purged", "deleted", deleted)
		return 0, nil
	})
	return deleted, err
}

// run reports failed items through its callback so partial runs are visible in metrics.
func (r *Runner) run(ctx context.Context, job Name, fn func(ctx context.Context) (int, error)) error {
	runID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Job:       logger.Ptr(string(job)),
		RunID:     &runID,
		Component: "accounting.jobs",
	})

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	sc := logger.StartSpan(ctx, "jobs."+string(job),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("job.run_id", runID)))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	slog.InfoContext(ctx, "job started")

	failed, err := fn(ctx)
	elapsed := time.Since(start)

	status := metrics.StatusSuccess
	switch {
	case err != nil:
		status = metrics.StatusFailure
		sc.RecordError(err)
		slog.ErrorContext(ctx, "job failed", "error", err, "duration_ms", elapsed.Milliseconds())
	case failed > 0:
		status = metrics.StatusPartial
		slog.WarnContext(ctx, "job finished with failures", "failed", failed, "duration_ms", elapsed.Milliseconds())
	default:
		slog.InfoContext(ctx, "job finished", "duration_ms", elapsed.Milliseconds())
	}
	metrics.RecordJobRun(string(job), status, elapsed.Seconds())

	if err != nil {
		return fmt.Errorf("%s job: %w", job, err)
	}
	return nil
}
