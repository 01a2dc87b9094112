package handler_test

import (
	"context"
	"time"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
)

type mockQuotaService struct {
	recordFn func(ctx context.Context, orgID string) (service.QuotaDecision, error)
	usageFn  func(ctx context.Context, orgID string) (*model.ConversationUsage, error)
}

func (m *mockQuotaService) RecordConversationCreated(ctx context.Context, orgID string) (service.QuotaDecision, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, orgID)
	}
	return service.QuotaDecision{Allowed: true}, nil
}

func (m *mockQuotaService) Reconcile(context.Context, string, time.Time) (*service.ReconcileResult, error) {
	return nil, nil
}

func (m *mockQuotaService) ReconcileAll(context.Context, service.ReconcileScope) (*service.BatchResult, error) {
	return &service.BatchResult{}, nil
}

func (m *mockQuotaService) Usage(ctx context.Context, orgID string) (*model.ConversationUsage, error) {
	if m.usageFn != nil {
		return m.usageFn(ctx, orgID)
	}
	return &model.ConversationUsage{}, nil
}

type mockWidgetService struct {
	updateFn func(ctx context.Context, widgetID string, policy model.RetentionPolicy) (*model.Widget, error)
}

func (m *mockWidgetService) GetByID(context.Context, string) (*model.Widget, error) {
	return nil, nil
}

func (m *mockWidgetService) UpdateRetentionPolicy(ctx context.Context, widgetID string, policy model.RetentionPolicy) (*model.Widget, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, widgetID, policy)
	}
	return &model.Widget{ID: widgetID, DataRetention: &policy}, nil
}

type mockAnalyticsService struct {
	daysFn func(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error)
}

func (m *mockAnalyticsService) Rebuild(context.Context, service.AnalyticsScope) (*service.RebuildSummary, error) {
	return &service.RebuildSummary{}, nil
}

func (m *mockAnalyticsService) Days(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error) {
	if m.daysFn != nil {
		return m.daysFn(ctx, widgetID, from, to)
	}
	return nil, nil
}

type mockAuditService struct {
	listFn func(ctx context.Context, filter service.AuditFilter) ([]model.AuditLogEntry, error)
}

func (m *mockAuditService) Record(context.Context, model.AuditAction, map[string]any) error {
	return nil
}

func (m *mockAuditService) List(ctx context.Context, filter service.AuditFilter) ([]model.AuditLogEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockAuditService) PurgeExpired(context.Context) (int64, error) {
	return 0, nil
}

type mockJobRunner struct {
	retentionFn func(ctx context.Context, scope service.RetentionScope) (*service.RetentionSummary, error)
	reconcileFn func(ctx context.Context, scope service.ReconcileScope) (*service.BatchResult, error)
	analyticsFn func(ctx context.Context, scope service.AnalyticsScope) (*service.RebuildSummary, error)
	purgeFn     func(ctx context.Context) (int64, error)
	calls       int
}

func (m *mockJobRunner) Retention(ctx context.Context, scope service.RetentionScope) (*service.RetentionSummary, error) {
	m.calls++
	if m.retentionFn != nil {
		return m.retentionFn(ctx, scope)
	}
	return &service.RetentionSummary{}, nil
}

func (m *mockJobRunner) Reconcile(ctx context.Context, scope service.ReconcileScope) (*service.BatchResult, error) {
	m.calls++
	if m.reconcileFn != nil {
		return m.reconcileFn(ctx, scope)
	}
	return &service.BatchResult{}, nil
}

func (m *mockJobRunner) Analytics(ctx context.Context, scope service.AnalyticsScope) (*service.RebuildSummary, error) {
	m.calls++
	if m.analyticsFn != nil {
		return m.analyticsFn(ctx, scope)
	}
	return &service.RebuildSummary{}, nil
}

func (m *mockJobRunner) AuditPurge(ctx context.Context) (int64, error) {
	m.calls++
	if m.purgeFn != nil {
		return m.purgeFn(ctx)
	}
	return 0, nil
}
