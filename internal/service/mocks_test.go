package service_test

import (
	"context"
	"sync"
	"time"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store/memstore"
)

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
	calls    int
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	m.calls++
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return nil
}

// memTxRunner runs fn against the in-memory store; memstore has no rollback.
func memTxRunner(mem *memstore.Store) *mockTxRunner {
	return &mockTxRunner{
		withTxFn: func(_ context.Context, fn func(stores service.StoreProvider) error) error {
			return fn(mem)
		},
	}
}

type mockNotifier struct {
	mu       sync.Mutex
	notifyFn func(ctx context.Context, n model.QuotaNotification) error
	sent     []model.QuotaNotification
}

func (m *mockNotifier) Notify(ctx context.Context, n model.QuotaNotification) error {
	if m.notifyFn != nil {
		if err := m.notifyFn(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) Sent() []model.QuotaNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.QuotaNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func auditActions(mem *memstore.Store, action model.AuditAction) []model.AuditLogEntry {
	var out []model.AuditLogEntry
	for _, e := range mem.AllAuditEntries() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}
