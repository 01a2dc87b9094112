package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"elva.app/accounting/common/logger"
	"elva.app/accounting/internal/metrics"
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/queue"
	"elva.app/accounting/internal/service"
)

type Config struct {
	MaxAttempts int
}

// Worker drains the quota notification stream and delivers each notification.
type Worker struct {
	consumer  Consumer
	deliverer Deliverer
	audit     service.AuditService
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New builds a Worker. A nil deliverer means notifications are only logged.
func New(consumer Consumer, deliverer Deliverer, audit service.AuditService, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		consumer:  consumer,
		deliverer: deliverer,
		audit:     audit,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "accounting.worker.notifications",
	})
	slog.InfoContext(ctx, "notification worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "notification worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle delivers one message and routes failures to retry or the DLQ.
// The reclaimer reuses it for stale pending messages.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "notification delivery failed",
			"error", err,
			"message_id", msg.ID,
			"organization_id", msg.Notification.OrganizationID,
			"attempt", msg.Attempt)
		w.handleFailedMessage(ctx, msg, err)
	}
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in notification delivery",
				"panic", r,
				"message_id", msg.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage delivers a notification, audits it and acknowledges the message.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	n := msg.Notification
	msgID := msg.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		OrganizationID: &n.OrganizationID,
		MessageID:      &msgID,
	})

	sc := logger.StartSpanFromTraceID(ctx, n.TraceID, "worker.deliver_notification",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	if w.deliverer == nil {
		slog.InfoContext(ctx, "quota threshold reached",
			"threshold_id", n.ThresholdID,
			"current", n.Current,
			"limit", n.Limit)
		metrics.RecordNotificationDelivery(metrics.StatusSkipped)
		return w.ack(ctx, msg)
	}

	if err := w.deliverer.Deliver(ctx, n); err != nil {
		sc.RecordError(err)
		metrics.RecordNotificationDelivery(metrics.StatusFailure)
		return err
	}
	metrics.RecordNotificationDelivery(metrics.StatusSuccess)

	if err := w.audit.Record(ctx, model.AuditActionNotificationDelivered, map[string]any{
		"organizationId": n.OrganizationID,
		"thresholdId":    n.ThresholdID,
		"notificationId": n.ID,
		"windowStart":    n.WindowStart,
		"attempt":        msg.Attempt,
	}); err != nil {
		// Delivered already; retrying would notify the customer twice.
		slog.WarnContext(ctx, "failed to audit notification delivery", "error", err)
	}

	slog.InfoContext(ctx, "quota notification delivered",
		"threshold_id", n.ThresholdID,
		"attempt", msg.Attempt)
	return w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) error {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer will pick it up again; the idempotency key covers the duplicate.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"attempts", msg.Attempt)
		metrics.RecordNotificationDelivery("dead_lettered")
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
