package service_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"elva.app/accounting/internal/lock"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
	"elva.app/accounting/internal/store/memstore"
)

var _ = Describe("RetentionService", func() {
	var (
		ctx    context.Context
		mem    *memstore.Store
		clock  *fakeClock
		locker *lock.LocalLocker
		svc    service.RetentionService
		now    time.Time
	)

	daysAgo := func(n int) time.Time {
		return now.Add(-time.Duration(n) * 24 * time.Hour)
	}

	putConversation := func(id, widgetID string, createdAt time.Time) {
		mem.PutConversation(model.Conversation{
			ID:             id,
			WidgetID:       widgetID,
			OrganizationID: "org-1",
			SessionID:      "s-" + id,
			UserID:         "user-" + id,
			UserAgent:      strPtr("Mozilla/5.0"),
			Referrer:       strPtr("https://example.com/pricing"),
			IPAddress:      strPtr("203.0.113.7"),
			Messages: []model.Message{
				{Role: "user", Content: "hello", Timestamp: createdAt},
				{Role: "assistant", Content: "hi!", Timestamp: createdAt, ResponseTime: floatPtr(420)},
			},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = memstore.New()
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		clock = newFakeClock(now)
		locker = lock.NewLocalLocker()
		svc = service.NewRetentionService(
			mem.Widgets(),
			mem.Conversations(),
			service.NewAuditService(mem.AuditLogs(), clock.Now),
			locker,
			clock.Now,
		)
	})

	It("deletes a 100-day-old conversation under a 30/90 policy instead of anonymizing it", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1", DataRetention: &model.RetentionPolicy{ConversationDays: 30, AnonymizeAfterDays: 90}})
		putConversation("old", "w-1", daysAgo(100))
		putConversation("recent", "w-1", daysAgo(10))

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(int64(1)))
		Expect(summary.Anonymized).To(Equal(int64(0)))
		Expect(summary.WidgetsProcessed).To(Equal(1))

		_, found := mem.Conversation("old")
		Expect(found).To(BeFalse())
		recent, found := mem.Conversation("recent")
		Expect(found).To(BeTrue())
		Expect(recent.Anonymized).To(BeFalse())
	})

	It("anonymizes conversations past the anonymization cutoff and strips PII", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1", DataRetention: &model.RetentionPolicy{ConversationDays: 90, AnonymizeAfterDays: 30}})
		putConversation("anon", "w-1", daysAgo(40))
		putConversation("gone", "w-1", daysAgo(100))
		putConversation("fresh", "w-1", daysAgo(5))

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Deleted).To(Equal(int64(1)))
		Expect(summary.Anonymized).To(Equal(int64(1)))

		c, found := mem.Conversation("anon")
		Expect(found).To(BeTrue())
		Expect(c.Anonymized).To(BeTrue())
		Expect(c.Messages).To(BeEmpty())
		Expect(c.UserID).To(Equal(model.AnonymizedUserID))
		Expect(c.UserAgent).To(BeNil())
		Expect(c.Referrer).To(BeNil())
		Expect(c.IPAddress).To(BeNil())
		Expect(c.AnonymizedAt).NotTo(BeNil())
		Expect(*c.AnonymizedAt).To(Equal(now))
		Expect(c.CreatedAt).To(Equal(daysAgo(40)))

		fresh, _ := mem.Conversation("fresh")
		Expect(fresh.Anonymized).To(BeFalse())
		Expect(fresh.Messages).To(HaveLen(2))
	})

	It("leaves every widget satisfying its policy afterwards", func() {
		mem.PutWidget(model.Widget{ID: "w-a", OrganizationID: "org-1", DataRetention: &model.RetentionPolicy{ConversationDays: 60, AnonymizeAfterDays: 7}})
		mem.PutWidget(model.Widget{ID: "w-b", OrganizationID: "org-1"})
		for _, d := range []int{1, 6, 8, 20, 45, 59, 61, 120} {
			putConversation(fmt.Sprintf("a-%d", d), "w-a", daysAgo(d))
			putConversation(fmt.Sprintf("b-%d", d), "w-b", daysAgo(d))
		}

		_, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())

		policies := map[string]model.RetentionPolicy{
			"w-a": {ConversationDays: 60, AnonymizeAfterDays: 7},
			"w-b": model.DefaultRetentionPolicy(),
		}
		for _, c := range mem.AllConversations() {
			policy := policies[c.WidgetID]
			Expect(c.CreatedAt.Before(daysAgo(policy.ConversationDays))).To(BeFalse(), c.ID)
			if c.CreatedAt.Before(daysAgo(policy.AnonymizeAfterDays)) {
				Expect(c.Anonymized).To(BeTrue(), c.ID)
				Expect(c.Messages).To(BeEmpty(), c.ID)
				Expect(c.UserID).To(Equal("anonymized"), c.ID)
			}
		}
	})

	It("is idempotent: a second run changes nothing and reports zeros", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1", DataRetention: &model.RetentionPolicy{ConversationDays: 90, AnonymizeAfterDays: 30}})
		putConversation("anon", "w-1", daysAgo(40))
		putConversation("gone", "w-1", daysAgo(100))

		_, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		before := mem.AllConversations()

		clock.Set(now.Add(time.Minute))
		second, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Deleted).To(BeZero())
		Expect(second.Anonymized).To(BeZero())
		Expect(second.WidgetsProcessed).To(Equal(1))
		Expect(mem.AllConversations()).To(Equal(before))
	})

	It("writes exactly one audit entry per widget, even when nothing matched", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1"})
		mem.PutWidget(model.Widget{ID: "w-2", OrganizationID: "org-1"})
		putConversation("old", "w-1", daysAgo(45))

		_, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())

		entries := auditActions(mem, model.AuditActionRetentionApplied)
		Expect(entries).To(HaveLen(2))
		byWidget := map[string]map[string]any{}
		for _, e := range entries {
			byWidget[e.Metadata["widgetId"].(string)] = e.Metadata
		}
		Expect(byWidget["w-1"]["conversationsDeleted"]).To(Equal(int64(1)))
		Expect(byWidget["w-2"]["conversationsDeleted"]).To(Equal(int64(0)))
		Expect(byWidget["w-2"]["conversationsAnonymized"]).To(Equal(int64(0)))
		Expect(entries[0].ExpiresAt).To(Equal(entries[0].Timestamp.Add(model.AuditRetention)))
	})

	It("falls back to 30/90 defaults for missing or partial policies", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1", DataRetention: &model.RetentionPolicy{ConversationDays: 0, AnonymizeAfterDays: 10}})
		putConversation("c-20", "w-1", daysAgo(20))
		putConversation("c-35", "w-1", daysAgo(35))

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Results).To(HaveLen(1))
		Expect(summary.Results[0].DefaultsApplied).To(BeTrue())
		Expect(summary.Results[0].Policy).To(Equal(model.RetentionPolicy{ConversationDays: 30, AnonymizeAfterDays: 10}))
		Expect(summary.Deleted).To(Equal(int64(1)))
		Expect(summary.Anonymized).To(Equal(int64(1)))
	})

	It("keeps going when one widget fails", func() {
		mem.PutWidget(model.Widget{ID: "w-bad", OrganizationID: "org-1"})
		mem.PutWidget(model.Widget{ID: "w-good", OrganizationID: "org-1"})
		putConversation("bad-old", "w-bad", daysAgo(45))
		putConversation("good-old", "w-good", daysAgo(45))
		mem.SetFailFunc(func(op, key string) error {
			if op == "Conversations.DeleteByWidgetBefore" && key == "w-bad" {
				return errors.New("write conflict")
			}
			return nil
		})

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.WidgetsProcessed).To(Equal(1))
		Expect(summary.WidgetsFailed).To(Equal(1))
		Expect(summary.Deleted).To(Equal(int64(1)))
		Expect(summary.Results[0].Status).To(Equal(service.ItemFailed))
		Expect(summary.Results[0].Error).To(ContainSubstring("write conflict"))

		_, found := mem.Conversation("bad-old")
		Expect(found).To(BeTrue())
	})

	It("aborts only when widgets cannot be enumerated", func() {
		mem.SetFailFunc(func(op, _ string) error {
			if op == "Widgets.List" {
				return errors.New("store unreachable")
			}
			return nil
		})

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).To(HaveOccurred())
		Expect(summary).To(BeNil())
	})

	It("skips widgets whose retention run is already in progress", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1"})
		putConversation("old", "w-1", daysAgo(45))
		release, err := locker.Acquire(ctx, lock.WidgetScope("retention", "w-1"))
		Expect(err).NotTo(HaveOccurred())
		defer release()

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.WidgetsSkipped).To(Equal(1))
		Expect(summary.WidgetsProcessed).To(BeZero())

		_, found := mem.Conversation("old")
		Expect(found).To(BeTrue())
		Expect(auditActions(mem, model.AuditActionRetentionApplied)).To(BeEmpty())
	})

	It("limits the run to scoped widgets and reports unknown ones", func() {
		mem.PutWidget(model.Widget{ID: "w-1", OrganizationID: "org-1"})
		mem.PutWidget(model.Widget{ID: "w-2", OrganizationID: "org-1"})
		putConversation("w2-old", "w-2", daysAgo(45))

		summary, err := svc.ApplyRetention(ctx, service.RetentionScope{WidgetIDs: []string{"w-1", "ghost"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.WidgetsProcessed).To(Equal(1))
		Expect(summary.WidgetsFailed).To(Equal(1))

		_, found := mem.Conversation("w2-old")
		Expect(found).To(BeTrue())
	})
})
