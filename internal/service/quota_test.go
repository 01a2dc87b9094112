package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store/memstore"
)

var _ = Describe("QuotaService", func() {
	var (
		ctx         context.Context
		mem         *memstore.Store
		clock       *fakeClock
		notifier    *mockNotifier
		locker      *lock.LocalLocker
		svc         service.QuotaService
		windowStart time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = memstore.New()
		clock = newFakeClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
		notifier = &mockNotifier{}
		locker = lock.NewLocalLocker()
		windowStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

		svc = service.NewQuotaService(
			mem.Organizations(),
			mem.Conversations(),
			service.NewAuditService(mem.AuditLogs(), clock.Now),
			notifier,
			locker,
			service.QuotaConfig{
				Limits:     service.NewPlanLimits(nil),
				Thresholds: []int{80, 100},
				Now:        clock.Now,
			},
		)
	})

	putOrg := func(current, limit int, lastReset time.Time, sent ...string) {
		mem.PutOrganization(model.Organization{
			ID:            "org-1",
			Plan:          model.PlanFree,
			LimitOverride: intPtr(limit),
			Usage: model.ConversationUsage{
				Current:           current,
				Limit:             limit,
				Overage:           model.Overage(current, limit),
				LastReset:         lastReset,
				NotificationsSent: sent,
			},
		})
	}

	usageOf := func(orgID string) model.ConversationUsage {
		org, err := mem.Organizations().GetByID(ctx, orgID)
		Expect(err).NotTo(HaveOccurred())
		return org.Usage
	}

	putConversation := func(id, orgID string, createdAt time.Time) {
		mem.PutConversation(model.Conversation{
			ID:             id,
			WidgetID:       "w-1",
			OrganizationID: orgID,
			SessionID:      "s-" + id,
			CreatedAt:      createdAt,
			UpdatedAt:      createdAt,
		})
	}

	countSent := func(sent []string, thresholdID string) int {
		n := 0
		for _, s := range sent {
			if s == thresholdID {
				n++
			}
		}
		return n
	}

	Describe("RecordConversationCreated", func() {
		It("increments usage and always allows", func() {
			putOrg(10, 100, windowStart)

			decision, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(service.QuotaDecision{Allowed: true, Current: 11, Limit: 100, Overage: 0}))
			Expect(usageOf("org-1").Current).To(Equal(11))
		})

		It("keeps overage equal to current minus limit once over the limit", func() {
			putOrg(100, 100, windowStart)

			decision, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())
			Expect(decision.Overage).To(Equal(1))

			usage := usageOf("org-1")
			Expect(usage.Overage).To(Equal(usage.Current - usage.Limit))
		})

		It("counts 10 concurrent increments exactly and notifies the 100% threshold once", func() {
			putOrg(95, 100, windowStart)

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					decision, err := svc.RecordConversationCreated(ctx, "org-1")
					Expect(err).NotTo(HaveOccurred())
					Expect(decision.Allowed).To(BeTrue())
				}()
			}
			wg.Wait()

			usage := usageOf("org-1")
			Expect(usage.Current).To(Equal(105))
			Expect(usage.Overage).To(Equal(5))
			Expect(countSent(usage.NotificationsSent, "conversations_100")).To(Equal(1))

			var full int
			for _, n := range notifier.Sent() {
				if n.ThresholdID == "conversations_100" {
					full++
					Expect(n.Current).To(BeNumerically(">=", 100))
					Expect(n.WindowStart).To(Equal(windowStart))
				}
			}
			Expect(full).To(Equal(1))
			Expect(auditActions(mem, model.AuditActionQuotaThresholdReached)).To(HaveLen(2))
		})

		It("does not notify a threshold already recorded in the window", func() {
			putOrg(85, 100, windowStart, "conversations_80")

			_, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.Sent()).To(BeEmpty())
		})

		It("resets an expired window before incrementing, exactly once", func() {
			putOrg(120, 100, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "conversations_80", "conversations_100")

			decision, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Current).To(Equal(1))
			Expect(decision.Overage).To(Equal(0))

			usage := usageOf("org-1")
			Expect(usage.LastReset).To(Equal(windowStart))
			Expect(usage.NotificationsSent).To(BeEmpty())

			_, err = svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(usageOf("org-1").Current).To(Equal(2))
			Expect(auditActions(mem, model.AuditActionQuotaWindowReset)).To(HaveLen(1))
		})

		It("resets once when concurrent calls race into a new window", func() {
			putOrg(50, 100, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.RecordConversationCreated(ctx, "org-1")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(usageOf("org-1").Current).To(Equal(8))
			Expect(auditActions(mem, model.AuditActionQuotaWindowReset)).To(HaveLen(1))
		})

		It("releases the threshold claim when the notification cannot be emitted", func() {
			putOrg(99, 100, windowStart, "conversations_80")
			calls := 0
			notifier.notifyFn = func(_ context.Context, _ model.QuotaNotification) error {
				calls++
				if calls == 1 {
					return errors.New("stream unavailable")
				}
				return nil
			}

			_, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(usageOf("org-1").NotificationsSent).NotTo(ContainElement("conversations_100"))

			_, err = svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(countSent(usageOf("org-1").NotificationsSent, "conversations_100")).To(Equal(1))
			Expect(notifier.Sent()).To(HaveLen(1))
		})

		It("soft-fails when the increment cannot be written", func() {
			putOrg(10, 100, windowStart)
			mem.SetFailFunc(func(op, _ string) error {
				if op == "Organizations.IncrementConversations" {
					return errors.New("connection refused")
				}
				return nil
			})

			decision, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).To(HaveOccurred())
			Expect(decision.Allowed).To(BeTrue())

			mem.SetFailFunc(nil)
			Expect(usageOf("org-1").Current).To(Equal(10))
		})

		It("reports unknown organizations but still allows", func() {
			decision, err := svc.RecordConversationCreated(ctx, "missing")
			Expect(err).To(MatchError(service.ErrOrganizationNotFound))
			Expect(decision.Allowed).To(BeTrue())
		})

		It("measures a fresh organization against its plan limit, not the stored zero", func() {
			mem.PutOrganization(model.Organization{
				ID:    "org-new",
				Plan:  model.PlanGrowth,
				Usage: model.ConversationUsage{LastReset: windowStart},
			})

			decision, err := svc.RecordConversationCreated(ctx, "org-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(service.QuotaDecision{Allowed: true, Current: 1, Limit: 300, Overage: 0}))
			Expect(notifier.Sent()).To(BeEmpty())

			usage := usageOf("org-new")
			Expect(usage.Limit).To(Equal(300))
			Expect(usage.Overage).To(BeZero())
			Expect(usage.NotificationsSent).To(BeEmpty())
		})

		It("applies a plan upgrade on the next increment", func() {
			mem.PutOrganization(model.Organization{
				ID:   "org-up",
				Plan: model.PlanPro,
				Usage: model.ConversationUsage{
					Current:   120,
					Limit:     100,
					Overage:   20,
					LastReset: windowStart,
				},
			})

			decision, err := svc.RecordConversationCreated(ctx, "org-up")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Limit).To(Equal(750))
			Expect(decision.Overage).To(BeZero())
			Expect(notifier.Sent()).To(BeEmpty())
			Expect(usageOf("org-up").Overage).To(BeZero())
		})

		It("applies a new limit override on the next increment", func() {
			putOrg(90, 100, windowStart)
			org, err := mem.Organizations().GetByID(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			org.LimitOverride = intPtr(80)
			mem.PutOrganization(*org)

			decision, err := svc.RecordConversationCreated(ctx, "org-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Limit).To(Equal(80))
			Expect(decision.Overage).To(Equal(11))
			Expect(usageOf("org-1").Overage).To(Equal(11))
		})
	})

	Describe("Reconcile", func() {
		It("converges the counter to the number of conversations in the window", func() {
			putOrg(3, 4, windowStart)
			for i := 0; i < 5; i++ {
				putConversation(fmt.Sprintf("c-%d", i), "org-1", windowStart.Add(time.Duration(i)*time.Hour))
			}
			putConversation("old-1", "org-1", windowStart.Add(-time.Hour))
			putConversation("other-org", "org-2", windowStart.Add(time.Hour))

			result, err := svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeTrue())
			Expect(result.Previous).To(Equal(3))
			Expect(result.Current).To(Equal(5))

			usage := usageOf("org-1")
			Expect(usage.Current).To(Equal(5))
			Expect(usage.Overage).To(Equal(1))
		})

		It("is idempotent when nothing changed in between", func() {
			putOrg(0, 100, windowStart)
			putConversation("c-1", "org-1", windowStart.Add(time.Hour))

			first, err := svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Changed).To(BeTrue())
			before := usageOf("org-1")

			second, err := svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Changed).To(BeFalse())
			Expect(usageOf("org-1")).To(Equal(before))
			Expect(auditActions(mem, model.AuditActionUsageReconciled)).To(HaveLen(2))
		})

		It("applies the plan limit table and per-organization override", func() {
			mem.PutOrganization(model.Organization{
				ID:    "org-growth",
				Plan:  model.PlanGrowth,
				Usage: model.ConversationUsage{LastReset: windowStart, Limit: 100},
			})

			result, err := svc.Reconcile(ctx, "org-growth", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Limit).To(Equal(300))
			Expect(usageOf("org-growth").Limit).To(Equal(300))
		})

		It("rolls a stale window forward using asOf", func() {
			putOrg(40, 100, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
			putConversation("jan", "org-1", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
			putConversation("mar-1", "org-1", windowStart.Add(2*time.Hour))
			putConversation("mar-2", "org-1", windowStart.Add(3*time.Hour))

			result, err := svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.WindowStart).To(Equal(windowStart))
			Expect(result.Current).To(Equal(2))
			Expect(usageOf("org-1").LastReset).To(Equal(windowStart))
		})

		It("notifies thresholds crossed by a correction", func() {
			putOrg(0, 2, windowStart)
			putConversation("c-1", "org-1", windowStart.Add(time.Hour))
			putConversation("c-2", "org-1", windowStart.Add(2*time.Hour))

			_, err := svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(usageOf("org-1").NotificationsSent).To(ConsistOf("conversations_80", "conversations_100"))
		})

		It("refuses to run while another reconciliation holds the organization", func() {
			putOrg(0, 100, windowStart)
			release, err := locker.Acquire(ctx, lock.OrganizationScope("reconcile", "org-1"))
			Expect(err).NotTo(HaveOccurred())
			defer release()

			_, err = svc.Reconcile(ctx, "org-1", clock.Now())
			Expect(err).To(MatchError(lock.ErrLockHeld))
		})
	})

	Describe("ReconcileAll", func() {
		It("counts per-organization outcomes without aborting the batch", func() {
			putOrg(0, 100, windowStart)
			mem.PutOrganization(model.Organization{ID: "org-bad", Plan: model.PlanFree, Usage: model.ConversationUsage{LastReset: windowStart}})
			mem.PutOrganization(model.Organization{ID: "org-busy", Plan: model.PlanFree, Usage: model.ConversationUsage{LastReset: windowStart}})
			mem.SetFailFunc(func(op, key string) error {
				if op == "Conversations.CountByOrganizationSince" && key == "org-bad" {
					return errors.New("timeout")
				}
				return nil
			})
			release, err := locker.Acquire(ctx, lock.OrganizationScope("reconcile", "org-busy"))
			Expect(err).NotTo(HaveOccurred())
			defer release()

			result, err := svc.ReconcileAll(ctx, service.ReconcileScope{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Succeeded).To(Equal(1))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Skipped).To(Equal(1))
			Expect(result.Err()).To(HaveOccurred())
		})

		It("counts a landed correction as succeeded when only the audit write fails", func() {
			putOrg(3, 100, windowStart)
			for i := 0; i < 5; i++ {
				putConversation(fmt.Sprintf("c-%d", i), "org-1", windowStart.Add(time.Duration(i+1)*time.Hour))
			}
			mem.SetFailFunc(func(op, _ string) error {
				if op == "AuditLogs.Create" {
					return errors.New("audit table locked")
				}
				return nil
			})

			result, err := svc.ReconcileAll(ctx, service.ReconcileScope{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Succeeded).To(Equal(1))
			Expect(result.Failed).To(BeZero())
			Expect(usageOf("org-1").Current).To(Equal(5))
		})

		It("aborts when organizations cannot be listed", func() {
			mem.SetFailFunc(func(op, _ string) error {
				if op == "Organizations.List" {
					return errors.New("store unreachable")
				}
				return nil
			})

			_, err := svc.ReconcileAll(ctx, service.ReconcileScope{})
			Expect(err).To(HaveOccurred())
		})

		It("limits the run to the given organizations", func() {
			putOrg(0, 100, windowStart)
			mem.PutOrganization(model.Organization{ID: "org-2", Plan: model.PlanFree, Usage: model.ConversationUsage{LastReset: windowStart}})

			result, err := svc.ReconcileAll(ctx, service.ReconcileScope{OrganizationIDs: []string{"org-2", "ghost"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Succeeded).To(Equal(1))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Results[1].Error).To(ContainSubstring("organization not found"))
		})
	})
})
