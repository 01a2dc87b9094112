package queue_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/queue"
)

var _ = Describe("Notification stream", func() {
	var (
		ctx      context.Context
		server   *miniredis.Miniredis
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
		cfg      queue.ConsumerConfig
		sample   model.QuotaNotification
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		server, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: server.Addr()})

		cfg = queue.ConsumerConfig{
			Stream:    "quota_notifications",
			Group:     "accounting_group",
			Consumer:  "worker-1",
			DLQStream: "quota_notifications_dlq",
			BatchSize: 10,
			Block:     10 * time.Millisecond,
		}
		producer = queue.NewRedisProducer(client, cfg.Stream, nil)
		consumer, err = queue.NewRedisConsumer(ctx, client, cfg)
		Expect(err).NotTo(HaveOccurred())

		sample = model.QuotaNotification{
			ID:             42,
			OrganizationID: "org-1",
			ThresholdID:    model.ThresholdID(80),
			Percent:        80,
			Current:        81,
			Limit:          100,
			WindowStart:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:      time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC),
			TraceID:        "4bf92f3577b34da6a3ce929d0e0e4736",
		}
	})

	AfterEach(func() {
		_ = client.Close()
		server.Close()
	})

	It("delivers a published notification to the consumer group", func() {
		Expect(producer.Notify(ctx, sample)).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Notification).To(Equal(sample))
		Expect(msgs[0].Attempt).To(Equal(1))
	})

	It("creating the consumer twice reuses the existing group", func() {
		_, err := queue.NewRedisConsumer(ctx, client, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requeues with the next attempt number", func() {
		Expect(producer.Notify(ctx, sample)).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Requeue(ctx, msgs[0], "webhook returned 502")).To(Succeed())

		retried, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(retried).To(HaveLen(1))
		Expect(retried[0].Attempt).To(Equal(2))
		Expect(retried[0].Raw.Values["last_error"]).To(Equal("webhook returned 502"))

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(Equal(int64(1)))
	})

	It("moves exhausted messages to the dead letter stream", func() {
		Expect(producer.Notify(ctx, sample)).To(Succeed())
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.SendDLQ(ctx, msgs[0], "gave up")).To(Succeed())

		dead, err := client.XRange(ctx, cfg.DLQStream, "-", "+").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(dead).To(HaveLen(1))
		Expect(dead[0].Values["error"]).To(Equal("gave up"))
		Expect(dead[0].Values["organization_id"]).To(Equal("org-1"))
	})

	It("acknowledges and drops malformed entries", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{
			Stream: cfg.Stream,
			Values: map[string]any{"organization_id": "org-1"},
		}).Err()).To(Succeed())

		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())

		pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})

	It("returns an empty batch when the stream is idle", func() {
		msgs, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(BeEmpty())
	})
})

var _ = Describe("ParseMessage", func() {
	It("rejects entries with unparseable timestamps", func() {
		_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{
			"notification_id": "1",
			"organization_id": "org-1",
			"threshold_id":    "conversations_80",
			"percent":         "80",
			"current":         "80",
			"limit":           "100",
			"window_start":    "yesterday",
			"created_at":      "2025-05-20T09:30:00Z",
		}})
		Expect(err).To(MatchError(ContainSubstring("window_start")))
	})
})
