package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/queue"
	"elva.app/accounting/internal/worker"
)

var _ = Describe("RedisReclaimer", func() {
	var (
		ctx    context.Context
		server *miniredis.Miniredis
		client *redis.Client
		cfg    queue.ConsumerConfig
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
			Consumer:  "crashed-worker",
			DLQStream: "quota_notifications_dlq",
			BatchSize: 10,
			Block:     10 * time.Millisecond,
		}
	})

	AfterEach(func() {
		_ = client.Close()
		server.Close()
	})

	It("hands messages abandoned by another consumer to the handler", func() {
		crashed, err := queue.NewRedisConsumer(ctx, client, cfg)
		Expect(err).NotTo(HaveOccurred())
		producer := queue.NewRedisProducer(client, cfg.Stream, nil)
		Expect(producer.Notify(ctx, model.QuotaNotification{
			ID:             5,
			OrganizationID: "org-1",
			ThresholdID:    model.ThresholdID(80),
			Percent:        80,
			Current:        80,
			Limit:          100,
		})).To(Succeed())

		// Read without ack, as if the process died mid-delivery.
		read, err := crashed.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(HaveLen(1))

		var mu sync.Mutex
		var handled []queue.Message
		reclaimer := worker.NewRedisReclaimer(client, worker.RedisReclaimerConfig{
			Stream:    cfg.Stream,
			Group:     cfg.Group,
			Consumer:  "reclaimer",
			BatchSize: 10,
			Interval:  time.Second,
		}, crashed, func(_ context.Context, msg queue.Message) {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, msg)
		})

		claimed, err := reclaimer.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed).To(Equal(1))
		Expect(handled).To(HaveLen(1))
		Expect(handled[0].Notification.OrganizationID).To(Equal("org-1"))
	})

	It("does nothing when no message is pending", func() {
		consumer, err := queue.NewRedisConsumer(ctx, client, cfg)
		Expect(err).NotTo(HaveOccurred())
		reclaimer := worker.NewRedisReclaimer(client, worker.RedisReclaimerConfig{
			Stream:    cfg.Stream,
			Group:     cfg.Group,
			Consumer:  "reclaimer",
			BatchSize: 10,
			Interval:  time.Second,
		}, consumer, func(context.Context, queue.Message) {
			Fail("handler must not run")
		})

		claimed, err := reclaimer.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed).To(BeZero())
	})
})
