package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"elva.app/accounting/internal/model"
)

// Producer publishes quota notifications onto a Redis stream.
// It satisfies service.Notifier.
type Producer interface {
	Notify(ctx context.Context, n model.QuotaNotification) error
	Close() error
}

type redisProducer struct {
	client redis.UniversalClient
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client redis.UniversalClient, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Notify(ctx context.Context, n model.QuotaNotification) error {
	msg := Message{Notification: n, Attempt: 1}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(msg, 1),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue quota notification: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued quota notification",
		"notification_id", n.ID,
		"organization_id", n.OrganizationID,
		"threshold_id", n.ThresholdID,
		"current", n.Current,
		"limit", n.Limit)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
