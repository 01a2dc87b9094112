package worker

import (
	"context"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Deliverer hands a quota notification to whatever informs the customer.
type Deliverer interface {
	Deliver(ctx context.Context, n model.QuotaNotification) error
}
