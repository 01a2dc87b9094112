package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/metrics"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

const jobRetention = "retention"

// RetentionScope limits a retention run. Empty WidgetIDs means every widget.
type RetentionScope struct {
	WidgetIDs []string
}

type WidgetRetentionResult struct {
	Policy          model.RetentionPolicy
	WidgetID        string
	Status          string
	Error           string
	Deleted         int64
	Anonymized      int64
	DefaultsApplied bool
}

type RetentionSummary struct {
	Results          []WidgetRetentionResult
	Deleted          int64
	Anonymized       int64
	WidgetsProcessed int
	WidgetsFailed    int
	WidgetsSkipped   int
}

type RetentionService interface {
	// ApplyRetention deletes and anonymizes expired conversations widget by widget.
	// Only a failure to enumerate widgets aborts the run.
	ApplyRetention(ctx context.Context, scope RetentionScope) (*RetentionSummary, error)
}

type retentionService struct {
	widgets       store.WidgetStore
	conversations store.ConversationStore
	audit         AuditService
	locker        lock.Locker
	now           func() time.Time
}

func NewRetentionService(
	widgets store.WidgetStore,
	conversations store.ConversationStore,
	audit AuditService,
	locker lock.Locker,
	now func() time.Time,
) RetentionService {
	if now == nil {
		now = time.Now
	}
	return &retentionService{
		widgets:       widgets,
		conversations: conversations,
		audit:         audit,
		locker:        locker,
		now:           now,
	}
}

func (s *retentionService) ApplyRetention(ctx context.Context, scope RetentionScope) (*RetentionSummary, error) {
	widgets, missing, err := resolveWidgets(ctx, s.widgets, scope.WidgetIDs)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	summary := &RetentionSummary{}

	for _, widgetID := range missing {
		summary.WidgetsFailed++
		summary.Results = append(summary.Results, WidgetRetentionResult{
			WidgetID: widgetID,
			Status:   ItemFailed,
			Error:    ErrWidgetNotFound.Error(),
		})
		metrics.RecordJobItem(jobRetention, metrics.StatusFailure)
	}

	for _, w := range widgets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := s.applyWidget(ctx, w, now)
		summary.Results = append(summary.Results, result)
		summary.Deleted += result.Deleted
		summary.Anonymized += result.Anonymized

		switch result.Status {
		case ItemSucceeded:
			summary.WidgetsProcessed++
			metrics.RecordJobItem(jobRetention, metrics.StatusSuccess)
		case ItemSkipped:
			summary.WidgetsSkipped++
			metrics.RecordJobItem(jobRetention, metrics.StatusSkipped)
		default:
			summary.WidgetsFailed++
			metrics.RecordJobItem(jobRetention, metrics.StatusFailure)
		}
	}

	metrics.RecordRetention(summary.Deleted, summary.Anonymized)
	slog.InfoContext(ctx, "retention run finished",
		"deleted", summary.Deleted,
		"anonymized", summary.Anonymized,
		"widgets_processed", summary.WidgetsProcessed,
		"widgets_failed", summary.WidgetsFailed,
		"widgets_skipped", summary.WidgetsSkipped)

	return summary, nil
}

func (s *retentionService) applyWidget(ctx context.Context, w model.Widget, now time.Time) WidgetRetentionResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WidgetID:       &w.ID,
		OrganizationID: &w.OrganizationID,
		Component:      "accounting.service.retention",
	})

	policy, complete := w.EffectiveRetention()
	result := WidgetRetentionResult{
		WidgetID:        w.ID,
		Policy:          policy,
		DefaultsApplied: !complete,
	}

	release, err := s.locker.Acquire(ctx, lock.WidgetScope(jobRetention, w.ID))
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			slog.InfoContext(ctx, "retention already running for widget, skipping")
			result.Status = ItemSkipped
			result.Error = err.Error()
			return result
		}
		return failWidget(ctx, result, err)
	}
	defer release()

	if !complete {
		slog.WarnContext(ctx, "widget retention policy incomplete, defaults applied",
			"conversation_days", policy.ConversationDays, "anonymize_after_days", policy.AnonymizeAfterDays)
	}
	if complete && !policy.AnonymizationReachable() {
		slog.WarnContext(ctx, "anonymization unreachable, conversations are deleted first",
			"conversation_days", policy.ConversationDays, "anonymize_after_days", policy.AnonymizeAfterDays)
	}

	deleteCutoff := now.Add(-days(policy.ConversationDays))
	anonymizeCutoff := now.Add(-days(policy.AnonymizeAfterDays))

	// Delete first: anything past both cutoffs is removed, not anonymized.
	result.Deleted, err = s.conversations.DeleteByWidgetBefore(ctx, w.ID, deleteCutoff)
	if err != nil {
		return s.auditFailure(ctx, failWidget(ctx, result, fmt.Errorf("deleting conversations: %w", err)))
	}

	result.Anonymized, err = s.conversations.AnonymizeByWidgetBefore(ctx, w.ID, anonymizeCutoff, now)
	if err != nil {
		return s.auditFailure(ctx, failWidget(ctx, result, fmt.Errorf("anonymizing conversations: %w", err)))
	}

	if err := s.audit.Record(ctx, model.AuditActionRetentionApplied, retentionMetadata(result)); err != nil {
		return failWidget(ctx, result, err)
	}

	result.Status = ItemSucceeded
	slog.InfoContext(ctx, "retention applied",
		"deleted", result.Deleted, "anonymized", result.Anonymized,
		"delete_cutoff", deleteCutoff, "anonymize_cutoff", anonymizeCutoff)
	return result
}

// auditFailure still records the widget run so partial deletes stay traceable.
func (s *retentionService) auditFailure(ctx context.Context, result WidgetRetentionResult) WidgetRetentionResult {
	if err := s.audit.Record(ctx, model.AuditActionRetentionApplied, retentionMetadata(result)); err != nil {
		slog.WarnContext(ctx, "failed to audit failed retention run", "error", err)
	}
	return result
}

func retentionMetadata(result WidgetRetentionResult) map[string]any {
	metadata := map[string]any{
		"widgetId":                result.WidgetID,
		"conversationsDeleted":    result.Deleted,
		"conversationsAnonymized": result.Anonymized,
		"conversationDays":        result.Policy.ConversationDays,
		"anonymizeAfterDays":      result.Policy.AnonymizeAfterDays,
		"defaultsApplied":         result.DefaultsApplied,
	}
	if result.Error != "" {
		metadata["error"] = result.Error
	}
	return metadata
}

func failWidget(ctx context.Context, result WidgetRetentionResult, err error) WidgetRetentionResult {
	slog.ErrorContext(ctx, "retention failed for widget", "error", err)
	result.Status = ItemFailed
	result.Error = err.Error()
	return result
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// resolveWidgets loads the widgets of a scope. Unknown ids are returned
// separately so they count as failed items instead of aborting the run.
func resolveWidgets(ctx context.Context, widgets store.WidgetStore, ids []string) ([]model.Widget, []string, error) {
	if len(ids) == 0 {
		all, err := widgets.List(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("listing widgets: %w", err)
		}
		return all, nil, nil
	}

	var found []model.Widget
	var missing []string
	for _, widgetID := range ids {
		w, err := widgets.GetByID(ctx, widgetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				missing = append(missing, widgetID)
				continue
			}
			return nil, nil, fmt.Errorf("loading widget %s: %w", widgetID, err)
		}
		found = append(found, *w)
	}
	return found, missing, nil
}
