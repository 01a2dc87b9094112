package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store/memstore"
)

var _ = Describe("AnalyticsService", func() {
	var (
		ctx      context.Context
		mem      *memstore.Store
		clock    *fakeClock
		locker   *lock.LocalLocker
		txRunner *mockTxRunner
		svc      service.AnalyticsService
	)

	at := func(day, hour, minute int) time.Time {
		return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC)
	}

	userMsg := model.Message{Role: "user", Content: "where is my order?"}
	reply := func(rt float64) model.Message {
		return model.Message{Role: "assistant", Content: "let me check", ResponseTime: floatPtr(rt)}
	}

	putConversation := func(id, widgetID, session string, created time.Time, satisfaction *float64, msgs ...model.Message) {
		mem.PutConversation(model.Conversation{
			ID:             id,
			WidgetID:       widgetID,
			OrganizationID: "org-1",
			SessionID:      session,
			Messages:       msgs,
			Satisfaction:   satisfaction,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}

	newService := func(loc *time.Location) service.AnalyticsService {
		return service.NewAnalyticsService(
			mem.Widgets(),
			mem.Conversations(),
			mem.Analytics(),
			txRunner,
			service.NewAuditService(mem.AuditLogs(), clock.Now),
			locker,
			loc,
		)
	}

	seed := func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1"})
		putConversation("c1", "w-1", "s1", at(1, 9, 15), floatPtr(4), userMsg, reply(400), reply(600))
		putConversation("c2", "w-1", "s1", at(1, 9, 45), nil, userMsg, reply(200))
		putConversation("c3", "w-1", "s2", at(1, 23, 30), floatPtr(2))
		putConversation("c4", "w-1", "s3", at(2, 0, 10), nil, userMsg)
	}

	sumConversations := func(widgetID string) int {
		total := 0
		for _, d := range mem.AllAnalyticsDays() {
			if d.WidgetID == widgetID {
				total += d.Metrics.Conversations
			}
		}
		return total
	}

	countConversations := func(widgetID string) int {
		total := 0
		for _, c := range mem.AllConversations() {
			if c.WidgetID == widgetID {
				total++
			}
		}
		return total
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = memstore.New()
		clock = newFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
		locker = lock.NewLocalLocker()
		txRunner = memTxRunner(mem)
		svc = newService(time.UTC)
	})

	It("computes per-day metrics from conversation documents", func() {
		seed()

		summary, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Succeeded).To(Equal(1))
		Expect(summary.Days).To(Equal(2))
		Expect(summary.Conversations).To(Equal(4))

		days := mem.AllAnalyticsDays()
		Expect(days).To(HaveLen(2))

		first := days[0]
		Expect(first.Date).To(Equal("2025-06-01"))
		Expect(first.Metrics.Conversations).To(Equal(3))
		Expect(first.Metrics.Messages).To(Equal(5))
		Expect(first.Metrics.UniqueUsers).To(Equal(2))
		Expect(first.Metrics.AvgResponseTime).To(BeNumerically("~", 400, 1e-9))
		Expect(first.Metrics.Satisfaction).NotTo(BeNil())
		Expect(*first.Metrics.Satisfaction).To(BeNumerically("~", 3, 1e-9))
		Expect(first.Hourly[9]).To(Equal(2))
		Expect(first.Hourly[23]).To(Equal(1))

		second := days[1]
		Expect(second.Date).To(Equal("2025-06-02"))
		Expect(second.Metrics.Conversations).To(Equal(1))
		Expect(second.Metrics.AvgResponseTime).To(BeZero())
		Expect(second.Metrics.Satisfaction).To(BeNil())
		Expect(second.Hourly[0]).To(Equal(1))

		Expect(auditActions(mem, model.AuditActionAnalyticsRebuilt)).To(HaveLen(1))
		Expect(txRunner.calls).To(Equal(1))
	})

	It("never double counts conversations that received more messages", func() {
		seed()
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		Expect(mem.AppendMessage("c1", reply(300), at(5, 8, 0))).To(BeTrue())
		Expect(mem.AppendMessage("c4", userMsg, at(6, 8, 0))).To(BeTrue())

		_, err = svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		Expect(sumConversations("w-1")).To(Equal(countConversations("w-1")))
		days := mem.AllAnalyticsDays()
		Expect(days).To(HaveLen(2))
		Expect(days[0].Metrics.Conversations).To(Equal(3))
		Expect(days[0].Metrics.Messages).To(Equal(6))
		Expect(days[1].Date).To(Equal("2025-06-02"))
	})

	It("produces byte-identical days when rebuilt twice", func() {
		seed()
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())
		first, err := json.Marshal(mem.AllAnalyticsDays())
		Expect(err).NotTo(HaveOccurred())

		clock.Set(clock.Now().Add(time.Hour))
		_, err = svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())
		second, err := json.Marshal(mem.AllAnalyticsDays())
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
	})

	It("drops days whose conversations were removed by retention", func() {
		seed()
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		_, err = mem.Conversations().DeleteByWidgetBefore(ctx, "w-1", at(2, 0, 0))
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		days := mem.AllAnalyticsDays()
		Expect(days).To(HaveLen(1))
		Expect(days[0].Date).To(Equal("2025-06-02"))
		Expect(sumConversations("w-1")).To(Equal(countConversations("w-1")))
	})

	It("buckets by creation date in the configured time zone", func() {
		seed()
		svc = newService(time.FixedZone("UTC-5", -5*3600))

		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		days := mem.AllAnalyticsDays()
		Expect(days).To(HaveLen(1))
		Expect(days[0].Date).To(Equal("2025-06-01"))
		Expect(days[0].Metrics.Conversations).To(Equal(4))
		Expect(days[0].Hourly[4]).To(Equal(2))
		Expect(days[0].Hourly[18]).To(Equal(1))
		Expect(days[0].Hourly[19]).To(Equal(1))
	})

	It("rebuilds only the requested date range", func() {
		seed()
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		putConversation("late", "w-1", "s9", at(1, 12, 0), nil)
		putConversation("next", "w-1", "s9", at(2, 12, 0), nil)

		_, err = svc.Rebuild(ctx, service.AnalyticsScope{From: strPtr("2025-06-02"), To: strPtr("2025-06-02")})
		Expect(err).NotTo(HaveOccurred())

		days := mem.AllAnalyticsDays()
		Expect(days).To(HaveLen(2))
		Expect(days[0].Metrics.Conversations).To(Equal(3))
		Expect(days[1].Metrics.Conversations).To(Equal(2))
	})

	It("rejects malformed or inverted ranges", func() {
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{From: strPtr("June 1st")})
		Expect(errors.Is(err, service.ErrInvalidDateRange)).To(BeTrue())

		_, err = svc.Rebuild(ctx, service.AnalyticsScope{From: strPtr("2025-06-03"), To: strPtr("2025-06-01")})
		Expect(errors.Is(err, service.ErrInvalidDateRange)).To(BeTrue())
	})

	It("counts failed and locked widgets without aborting", func() {
		seed()
		mem.PutWidget(model.Widget{ID: "w-bad", OrganizationID: "org-1"})
		mem.PutWidget(model.Widget{ID: "w-busy", OrganizationID: "org-1"})
		putConversation("bad-1", "w-bad", "s1", at(1, 10, 0), nil)
		mem.SetFailFunc(func(op, key string) error {
			if op == "Analytics.Upsert" && key == "w-bad" {
				return errors.New("disk full")
			}
			return nil
		})
		release, err := locker.Acquire(ctx, lock.WidgetScope("analytics", "w-busy"))
		Expect(err).NotTo(HaveOccurred())
		defer release()

		summary, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Succeeded).To(Equal(1))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Skipped).To(Equal(1))
		Expect(summary.Err()).To(MatchError(ContainSubstring("disk full")))
	})

	It("lists stored days for a known widget only", func() {
		seed()
		_, err := svc.Rebuild(ctx, service.AnalyticsScope{})
		Expect(err).NotTo(HaveOccurred())

		days, err := svc.Days(ctx, "w-1", strPtr("2025-06-02"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(days).To(HaveLen(1))

		_, err = svc.Days(ctx, "ghost", nil, nil)
		Expect(err).To(MatchError(service.ErrWidgetNotFound))
	})
})
