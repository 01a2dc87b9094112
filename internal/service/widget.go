package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

var ErrInvalidRetentionPolicy = model.ErrInvalidRetentionPolicy

type WidgetService interface {
	GetByID(ctx context.Context, widgetID string) (*model.Widget, error)
	// UpdateRetentionPolicy rejects policies under which anonymization can never happen.
	UpdateRetentionPolicy(ctx context.Context, widgetID string, policy model.RetentionPolicy) (*model.Widget, error)
}

type widgetService struct {
	widgets store.WidgetStore
	audit   AuditService
}

func NewWidgetService(widgets store.WidgetStore, audit AuditService) WidgetService {
	return &widgetService{widgets: widgets, audit: audit}
}

func (s *widgetService) GetByID(ctx context.Context, widgetID string) (*model.Widget, error) {
	w, err := s.widgets.GetByID(ctx, widgetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWidgetNotFound
		}
		return nil, fmt.Errorf("loading widget: %w", err)
	}
	return w, nil
}

func (s *widgetService) UpdateRetentionPolicy(ctx context.Context, widgetID string, policy model.RetentionPolicy) (*model.Widget, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	w, err := s.GetByID(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	previous, _ := w.EffectiveRetention()

	if err := s.widgets.UpdateRetention(ctx, widgetID, policy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWidgetNotFound
		}
		return nil, fmt.Errorf("updating retention policy: %w", err)
	}
	w.DataRetention = &policy

	if err := s.audit.Record(ctx, model.AuditActionRetentionPolicyUpdated, map[string]any{
		"widgetId":                   widgetID,
		"organizationId":             w.OrganizationID,
		"conversationDays":           policy.ConversationDays,
		"anonymizeAfterDays":         policy.AnonymizeAfterDays,
		"previousConversationDays":   previous.ConversationDays,
		"previousAnonymizeAfterDays": previous.AnonymizeAfterDays,
	}); err != nil {
		slog.WarnContext(ctx, "failed to audit retention policy update", "widget_id", widgetID, "error", err)
	}

	return w, nil
}
