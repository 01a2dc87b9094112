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

const jobAnalytics = "analytics"

var ErrInvalidDateRange = errors.New("invalid date range")

// AnalyticsScope selects what a rebuild recomputes. From and To are inclusive
// calendar dates ("2006-01-02") in the aggregation time zone; nil is open.
type AnalyticsScope struct {
	From      *string
	To        *string
	WidgetIDs []string
}

type RebuildSummary struct {
	BatchResult
	Days          int
	Conversations int
}

type AnalyticsService interface {
	// Rebuild recomputes AnalyticsDay documents from the conversation store,
	// replacing every stored day of the scope.
	Rebuild(ctx context.Context, scope AnalyticsScope) (*RebuildSummary, error)
	Days(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error)
}

type analyticsService struct {
	widgets       store.WidgetStore
	conversations store.ConversationStore
	analytics     store.AnalyticsStore
	txRunner      TxRunner
	audit         AuditService
	locker        lock.Locker
	location      *time.Location
}

func NewAnalyticsService(
	widgets store.WidgetStore,
	conversations store.ConversationStore,
	analytics store.AnalyticsStore,
	txRunner TxRunner,
	audit AuditService,
	locker lock.Locker,
	location *time.Location,
) AnalyticsService {
	if location == nil {
		location = time.UTC
	}
	return &analyticsService{
		widgets:       widgets,
		conversations: conversations,
		analytics:     analytics,
		txRunner:      txRunner,
		audit:         audit,
		locker:        locker,
		location:      location,
	}
}

func (s *analyticsService) Rebuild(ctx context.Context, scope AnalyticsScope) (*RebuildSummary, error) {
	from, to, err := s.bounds(scope)
	if err != nil {
		return nil, err
	}

	widgets, missing, err := resolveWidgets(ctx, s.widgets, scope.WidgetIDs)
	if err != nil {
		return nil, err
	}

	summary := &RebuildSummary{}
	for _, widgetID := range missing {
		summary.fail(widgetID, ErrWidgetNotFound)
		metrics.RecordJobItem(jobAnalytics, metrics.StatusFailure)
	}

	for _, w := range widgets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		days, conversations, err := s.rebuildWidget(ctx, w, scope, from, to)
		switch {
		case err == nil:
			summary.succeed(w.ID)
			summary.Days += days
			summary.Conversations += conversations
			metrics.RecordJobItem(jobAnalytics, metrics.StatusSuccess)
		case errors.Is(err, lock.ErrLockHeld):
			summary.skip(w.ID, err.Error())
			metrics.RecordJobItem(jobAnalytics, metrics.StatusSkipped)
		default:
			summary.fail(w.ID, fmt.Errorf("widget %s: %w", w.ID, err))
			metrics.RecordJobItem(jobAnalytics, metrics.StatusFailure)
			slog.ErrorContext(ctx, "analytics rebuild failed", "widget_id", w.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "analytics rebuild finished",
		"succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped,
		"days", summary.Days, "conversations", summary.Conversations)
	return summary, nil
}

// bounds converts the inclusive date scope into a half-open created_at range.
func (s *analyticsService) bounds(scope AnalyticsScope) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if scope.From != nil {
		t, err := time.ParseInLocation(model.DateLayout, *scope.From, s.location)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: from %q", ErrInvalidDateRange, *scope.From)
		}
		from = &t
	}
	if scope.To != nil {
		t, err := time.ParseInLocation(model.DateLayout, *scope.To, s.location)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: to %q", ErrInvalidDateRange, *scope.To)
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("%w: from is after to", ErrInvalidDateRange)
	}
	return from, to, nil
}

func (s *analyticsService) rebuildWidget(ctx context.Context, w model.Widget, scope AnalyticsScope, from, to *time.Time) (int, int, error) {
	release, err := s.locker.Acquire(ctx, lock.WidgetScope(jobAnalytics, w.ID))
	if err != nil {
		return 0, 0, err
	}
	defer release()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WidgetID:       &w.ID,
		OrganizationID: &w.OrganizationID,
		Component:      "accounting.service.analytics",
	})

	conversations, err := s.conversations.ListByWidget(ctx, w.ID, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("listing conversations: %w", err)
	}

	days := AggregateDays(w.ID, conversations, s.location)

	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		// Days with no conversations left (e.g. after retention) must disappear too.
		if _, err := stores.Analytics().DeleteRange(ctx, w.ID, scope.From, scope.To); err != nil {
			return fmt.Errorf("clearing analytics days: %w", err)
		}
		for i := range days {
			if err := stores.Analytics().Upsert(ctx, &days[i]); err != nil {
				return fmt.Errorf("writing analytics day %s: %w", days[i].Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	metadata := map[string]any{
		"widgetId":      w.ID,
		"days":          len(days),
		"conversations": len(conversations),
	}
	if scope.From != nil {
		metadata["from"] = *scope.From
	}
	if scope.To != nil {
		metadata["to"] = *scope.To
	}
	if err := s.audit.Record(ctx, model.AuditActionAnalyticsRebuilt, metadata); err != nil {
		return 0, 0, err
	}

	slog.DebugContext(ctx, "analytics rebuilt for widget", "days", len(days), "conversations", len(conversations))
	return len(days), len(conversations), nil
}

func (s *analyticsService) Days(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error) {
	if _, err := s.widgets.GetByID(ctx, widgetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWidgetNotFound
		}
		return nil, fmt.Errorf("loading widget: %w", err)
	}
	days, err := s.analytics.ListByWidget(ctx, widgetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing analytics days: %w", err)
	}
	return days, nil
}
