package service

import (
	"context"

	"elva.app/accounting/core/db"
	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/store"
)

// StoreProvider exposes the stores a service may touch, bound either to the
// pool or to a running transaction.
type StoreProvider interface {
	Organizations() store.OrganizationStore
	Widgets() store.WidgetStore
	Conversations() store.ConversationStore
	Analytics() store.AnalyticsStore
	AuditLogs() store.AuditLogStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		return fn(store.NewStores(q))
	})
}
