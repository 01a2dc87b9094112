package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"elva.app/accounting/common/id"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

const maxAuditListLimit = 500

type AuditFilter struct {
	Since  *time.Time
	Action model.AuditAction
	Limit  int32
}

type AuditService interface {
	Record(ctx context.Context, action model.AuditAction, metadata map[string]any) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, error)
	// PurgeExpired deletes entries past their expiry and records the purge itself.
	PurgeExpired(ctx context.Context) (int64, error)
}

type auditService struct {
	auditStore store.AuditLogStore
	now        func() time.Time
}

func NewAuditService(auditStore store.AuditLogStore, now func() time.Time) AuditService {
	if now == nil {
		now = time.Now
	}
	return &auditService{auditStore: auditStore, now: now}
}

func (s *auditService) Record(ctx context.Context, action model.AuditAction, metadata map[string]any) error {
	ts := s.now().UTC()
	entry := &model.AuditLogEntry{
		ID:        id.New(),
		Action:    action,
		Timestamp: ts,
		ExpiresAt: ts.Add(model.AuditRetention),
		Metadata:  metadata,
	}
	if err := s.auditStore.Create(ctx, entry); err != nil {
		return fmt.Errorf("recording audit entry %s: %w", action, err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}
	entries, err := s.auditStore.List(ctx, store.AuditLogFilter{
		Since:  filter.Since,
		Action: filter.Action,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}

func (s *auditService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	deleted, err := s.auditStore.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purging expired audit entries: %w", err)
	}

	slog.InfoContext(ctx, "expired audit entries purged", "deleted", deleted)

	if err := s.Record(ctx, model.AuditActionAuditLogPurged, map[string]any{
		"deleted": deleted,
	}); err != nil {
		slog.WarnContext(ctx, "failed to audit purge", "error", err)
	}
	return deleted, nil
}
