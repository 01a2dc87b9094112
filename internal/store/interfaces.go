package store

import (
	"context"
	"errors"
	"time"

	"elva.app/accounting/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// OrganizationStore defines the contract for organization usage access.
// Every usage mutation is a single atomic statement; callers never
// read-modify-write the counter themselves.
type OrganizationStore interface {
	GetByID(ctx context.Context, id string) (*model.Organization, error)
	List(ctx context.Context) ([]model.Organization, error)
	// ResetUsageWindow starts a new window only if the stored LastReset still equals
	// expectedLastReset. Returns false when another caller already reset it.
	ResetUsageWindow(ctx context.Context, id string, expectedLastReset, windowStart time.Time, limit int) (bool, error)
	// IncrementConversations adds one conversation, stores limit as the current plan limit and
	// recomputes overage against it, returning the post-increment usage.
	IncrementConversations(ctx context.Context, id string, limit int) (*model.ConversationUsage, error)
	// ClaimNotification adds thresholdID to NotificationsSent for the given window.
	// Returns false when it was already present or the window has moved on.
	ClaimNotification(ctx context.Context, id string, windowStart time.Time, thresholdID string) (bool, error)
	ReleaseNotification(ctx context.Context, id string, windowStart time.Time, thresholdID string) error
	// SetUsage overwrites current and limit (overage is derived) within the window starting at
	// windowStart. Returns false when the window has moved on. Used by reconciliation only.
	SetUsage(ctx context.Context, id string, windowStart time.Time, current, limit int) (bool, error)
}

// WidgetStore defines the contract for widget data access
type WidgetStore interface {
	GetByID(ctx context.Context, id string) (*model.Widget, error)
	List(ctx context.Context) ([]model.Widget, error)
	UpdateRetention(ctx context.Context, id string, policy model.RetentionPolicy) error
}

// ConversationStore is the accounting view of the conversation log.
type ConversationStore interface {
	CountByOrganizationSince(ctx context.Context, organizationID string, since time.Time) (int, error)
	// DeleteByWidgetBefore permanently removes conversations with created_at < cutoff.
	DeleteByWidgetBefore(ctx context.Context, widgetID string, cutoff time.Time) (int64, error)
	// AnonymizeByWidgetBefore redacts conversations with created_at < cutoff that are not yet anonymized.
	AnonymizeByWidgetBefore(ctx context.Context, widgetID string, cutoff, now time.Time) (int64, error)
	// ListByWidget returns conversations with from <= created_at < to, ordered by created_at then id.
	// Nil bounds are open.
	ListByWidget(ctx context.Context, widgetID string, from, to *time.Time) ([]model.Conversation, error)
}

// AnalyticsStore defines the contract for derived per-day analytics.
// Date bounds are inclusive "2006-01-02" keys; nil is open.
type AnalyticsStore interface {
	DeleteRange(ctx context.Context, widgetID string, from, to *string) (int64, error)
	Upsert(ctx context.Context, day *model.AnalyticsDay) error
	ListByWidget(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error)
}

type AuditLogFilter struct {
	Since  *time.Time
	Action model.AuditAction
	Limit  int32
}

// AuditLogStore is append-only apart from expiry.
type AuditLogStore interface {
	Create(ctx context.Context, entry *model.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLogEntry, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
