package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"elva.app/accounting/common/id"
	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/metrics"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

const jobReconcile = "reconcile"

// Notifier hands a quota notification to whatever delivers it.
type Notifier interface {
	Notify(ctx context.Context, n model.QuotaNotification) error
}

// QuotaDecision is the soft admission result of a conversation-created event.
// Allowed is always true: overage is reported, never enforced.
type QuotaDecision struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
	Overage int  `json:"overage"`
}

type ReconcileResult struct {
	WindowStart    time.Time `json:"window_start"`
	OrganizationID string    `json:"organization_id"`
	Previous       int       `json:"previous"`
	Current        int       `json:"current"`
	Limit          int       `json:"limit"`
	Overage        int       `json:"overage"`
	Changed        bool      `json:"changed"`
}

// ReconcileScope limits a reconciliation run. Empty OrganizationIDs means all.
type ReconcileScope struct {
	AsOf            time.Time
	OrganizationIDs []string
}

type QuotaService interface {
	// RecordConversationCreated counts one new conversation. Store errors are
	// returned for logging but the decision is still Allowed.
	RecordConversationCreated(ctx context.Context, orgID string) (QuotaDecision, error)
	Reconcile(ctx context.Context, orgID string, asOf time.Time) (*ReconcileResult, error)
	ReconcileAll(ctx context.Context, scope ReconcileScope) (*BatchResult, error)
	Usage(ctx context.Context, orgID string) (*model.ConversationUsage, error)
}

type QuotaConfig struct {
	Limits     PlanLimits
	Now        func() time.Time
	Thresholds []int
}

type quotaService struct {
	orgs          store.OrganizationStore
	conversations store.ConversationStore
	audit         AuditService
	notifier      Notifier
	locker        lock.Locker
	limits        PlanLimits
	thresholds    []int
	now           func() time.Time
}

func NewQuotaService(
	orgs store.OrganizationStore,
	conversations store.ConversationStore,
	audit AuditService,
	notifier Notifier,
	locker lock.Locker,
	cfg QuotaConfig,
) QuotaService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &quotaService{
		orgs:          orgs,
		conversations: conversations,
		audit:         audit,
		notifier:      notifier,
		locker:        locker,
		limits:        cfg.Limits,
		thresholds:    cfg.Thresholds,
		now:           now,
	}
}

func (s *quotaService) RecordConversationCreated(ctx context.Context, orgID string) (QuotaDecision, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		OrganizationID: &orgID,
		Component:      "accounting.service.quota",
	})
	decision := QuotaDecision{Allowed: true}
	now := s.now().UTC()

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		metrics.RecordQuotaIncrement(metrics.StatusFailure)
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "conversation recorded for unknown organization")
			return decision, ErrOrganizationNotFound
		}
		slog.ErrorContext(ctx, "failed to load organization usage", "error", err)
		return decision, fmt.Errorf("loading organization: %w", err)
	}

	if org.Usage.WindowExpired(now) {
		s.resetWindow(ctx, org, model.StartOfMonth(now))
	}

	// The plan table is authoritative; the stored limit may predate a plan change.
	usage, err := s.orgs.IncrementConversations(ctx, orgID, s.limits.ForOrganization(org))
	if err != nil {
		// Drift from a lost increment is closed by reconciliation, never by retrying here.
		metrics.RecordQuotaIncrement(metrics.StatusFailure)
		slog.ErrorContext(ctx, "failed to increment conversation usage", "error", err)
		return decision, fmt.Errorf("incrementing usage: %w", err)
	}
	metrics.RecordQuotaIncrement(metrics.StatusSuccess)

	decision.Current = usage.Current
	decision.Limit = usage.Limit
	decision.Overage = usage.Overage

	if usage.Overage > 0 {
		slog.DebugContext(ctx, "organization over conversation limit",
			"current", usage.Current, "limit", usage.Limit, "overage", usage.Overage)
	}

	s.notifyThresholds(ctx, orgID, *usage)
	return decision, nil
}

// resetWindow starts a new window if nobody else already did. Failures are
// logged; the increment that follows still lands in whichever window is stored.
func (s *quotaService) resetWindow(ctx context.Context, org *model.Organization, windowStart time.Time) bool {
	limit := s.limits.ForOrganization(org)
	reset, err := s.orgs.ResetUsageWindow(ctx, org.ID, org.Usage.LastReset, windowStart, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reset usage window", "error", err)
		return false
	}
	if !reset {
		return false
	}

	metrics.QuotaWindowResetsTotal.Inc()
	slog.InfoContext(ctx, "usage window reset",
		"previous_window", org.Usage.LastReset, "window_start", windowStart,
		"previous_current", org.Usage.Current, "limit", limit)

	if err := s.audit.Record(ctx, model.AuditActionQuotaWindowReset, map[string]any{
		"organizationId":  org.ID,
		"previousWindow":  org.Usage.LastReset,
		"previousCurrent": org.Usage.Current,
		"windowStart":     windowStart,
		"limit":           limit,
	}); err != nil {
		slog.WarnContext(ctx, "failed to audit usage window reset", "error", err)
	}
	return true
}

// notifyThresholds emits one notification per crossed threshold per window.
// The claim on NotificationsSent is the idempotency key; a failed emit gives it back.
func (s *quotaService) notifyThresholds(ctx context.Context, orgID string, usage model.ConversationUsage) {
	for _, pct := range s.thresholds {
		if usage.Current*100 < pct*usage.Limit {
			continue
		}
		thresholdID := model.ThresholdID(pct)
		if usage.HasNotified(thresholdID) {
			continue
		}

		claimed, err := s.orgs.ClaimNotification(ctx, orgID, usage.LastReset, thresholdID)
		if err != nil {
			metrics.RecordQuotaNotification(thresholdID, metrics.StatusFailure)
			slog.ErrorContext(ctx, "failed to claim quota notification", "threshold", thresholdID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		n := model.QuotaNotification{
			ID:             id.New(),
			OrganizationID: orgID,
			ThresholdID:    thresholdID,
			Percent:        pct,
			Current:        usage.Current,
			Limit:          usage.Limit,
			WindowStart:    usage.LastReset,
			CreatedAt:      s.now().UTC(),
			TraceID:        traceIDFromContext(ctx),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.RecordQuotaNotification(thresholdID, metrics.StatusFailure)
			slog.ErrorContext(ctx, "failed to emit quota notification", "threshold", thresholdID, "error", err)
			if relErr := s.orgs.ReleaseNotification(ctx, orgID, usage.LastReset, thresholdID); relErr != nil {
				slog.ErrorContext(ctx, "failed to release quota notification claim", "threshold", thresholdID, "error", relErr)
			}
			continue
		}

		metrics.RecordQuotaNotification(thresholdID, metrics.StatusSuccess)
		slog.InfoContext(ctx, "quota threshold reached",
			"threshold", thresholdID, "current", usage.Current, "limit", usage.Limit)

		if err := s.audit.Record(ctx, model.AuditActionQuotaThresholdReached, map[string]any{
			"organizationId": orgID,
			"threshold":      thresholdID,
			"percent":        pct,
			"current":        usage.Current,
			"limit":          usage.Limit,
			"windowStart":    usage.LastReset,
			"notificationId": n.ID,
		}); err != nil {
			slog.WarnContext(ctx, "failed to audit quota threshold", "error", err)
		}
	}
}

func (s *quotaService) Reconcile(ctx context.Context, orgID string, asOf time.Time) (*ReconcileResult, error) {
	release, err := s.locker.Acquire(ctx, lock.OrganizationScope(jobReconcile, orgID))
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		OrganizationID: &orgID,
		Component:      "accounting.service.quota",
	})
	return s.reconcile(ctx, orgID, asOf.UTC())
}

func (s *quotaService) reconcile(ctx context.Context, orgID string, asOf time.Time) (*ReconcileResult, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}

	if org.Usage.WindowExpired(asOf) {
		s.resetWindow(ctx, org, model.StartOfMonth(asOf))
		if org, err = s.orgs.GetByID(ctx, orgID); err != nil {
			return nil, fmt.Errorf("reloading organization: %w", err)
		}
	}

	usage := org.Usage
	count, err := s.conversations.CountByOrganizationSince(ctx, orgID, usage.LastReset)
	if err != nil {
		return nil, fmt.Errorf("counting conversations: %w", err)
	}
	limit := s.limits.ForOrganization(org)

	result := &ReconcileResult{
		OrganizationID: orgID,
		WindowStart:    usage.LastReset,
		Previous:       usage.Current,
		Current:        count,
		Limit:          limit,
		Overage:        model.Overage(count, limit),
	}
	result.Changed = count != usage.Current || limit != usage.Limit || result.Overage != usage.Overage

	if result.Changed {
		ok, err := s.orgs.SetUsage(ctx, orgID, usage.LastReset, count, limit)
		if err != nil {
			return nil, fmt.Errorf("writing reconciled usage: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("usage window of organization %s moved during reconciliation", orgID)
		}
		metrics.UsageDriftTotal.Inc()
		slog.InfoContext(ctx, "usage drift corrected",
			"previous", usage.Current, "current", count, "previous_limit", usage.Limit, "limit", limit)

		corrected := usage
		corrected.Current = count
		corrected.Limit = limit
		corrected.Overage = result.Overage
		s.notifyThresholds(ctx, orgID, corrected)
	}

	if err := s.audit.Record(ctx, model.AuditActionUsageReconciled, map[string]any{
		"organizationId": orgID,
		"previous":       result.Previous,
		"current":        result.Current,
		"limit":          result.Limit,
		"overage":        result.Overage,
		"changed":        result.Changed,
		"windowStart":    result.WindowStart,
	}); err != nil {
		// The usage row is already corrected at this point.
		slog.WarnContext(ctx, "failed to audit usage reconciliation", "error", err)
	}
	return result, nil
}

func (s *quotaService) ReconcileAll(ctx context.Context, scope ReconcileScope) (*BatchResult, error) {
	asOf := scope.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}

	orgIDs := scope.OrganizationIDs
	if len(orgIDs) == 0 {
		orgs, err := s.orgs.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing organizations: %w", err)
		}
		for _, org := range orgs {
			orgIDs = append(orgIDs, org.ID)
		}
	}

	result := &BatchResult{}
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.Reconcile(ctx, orgID, asOf)
		switch {
		case err == nil:
			result.succeed(orgID)
			metrics.RecordJobItem(jobReconcile, metrics.StatusSuccess)
		case errors.Is(err, lock.ErrLockHeld):
			result.skip(orgID, err.Error())
			metrics.RecordJobItem(jobReconcile, metrics.StatusSkipped)
		default:
			result.fail(orgID, fmt.Errorf("organization %s: %w", orgID, err))
			metrics.RecordJobItem(jobReconcile, metrics.StatusFailure)
			slog.ErrorContext(ctx, "reconciliation failed", "organization_id", orgID, "error", err)
		}
	}

	slog.InfoContext(ctx, "reconciliation finished",
		"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (s *quotaService) Usage(ctx context.Context, orgID string) (*model.ConversationUsage, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}
	return &org.Usage, nil
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
