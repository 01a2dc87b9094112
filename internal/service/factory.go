package service

import (
	"time"

	"elva.app/accounting/internal/lock"
)

// Options carries the configuration shared by the services.
type Options struct {
	Limits     PlanLimits
	Location   *time.Location
	Now        func() time.Time
	Thresholds []int
}

type Services struct {
	stores   StoreProvider
	txRunner TxRunner
	locker   lock.Locker
	notifier Notifier
	opts     Options
}

func NewServices(stores StoreProvider, txRunner TxRunner, locker lock.Locker, notifier Notifier, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		locker:   locker,
		notifier: notifier,
		opts:     opts,
	}
}

func (s *Services) Audit() AuditService {
	return NewAuditService(s.stores.AuditLogs(), s.opts.Now)
}

func (s *Services) Quota() QuotaService {
	return NewQuotaService(
		s.stores.Organizations(),
		s.stores.Conversations(),
		s.Audit(),
		s.notifier,
		s.locker,
		QuotaConfig{Limits: s.opts.Limits, Thresholds: s.opts.Thresholds, Now: s.opts.Now},
	)
}

func (s *Services) Retention() RetentionService {
	return NewRetentionService(s.stores.Widgets(), s.stores.Conversations(), s.Audit(), s.locker, s.opts.Now)
}

func (s *Services) Analytics() AnalyticsService {
	return NewAnalyticsService(
		s.stores.Widgets(),
		s.stores.Conversations(),
		s.stores.Analytics(),
		s.txRunner,
		s.Audit(),
		s.locker,
		s.opts.Location,
	)
}

func (s *Services) Widgets() WidgetService {
	return NewWidgetService(s.stores.Widgets(), s.Audit())
}
