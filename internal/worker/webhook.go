package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"elva.app/accounting/internal/model"
)

type WebhookDeliverer struct {
	url        string
	httpClient *resty.Client
}

// NewWebhookDeliverer returns nil when url is empty so callers can fall back to logging.
func NewWebhookDeliverer(url string, timeout time.Duration) *WebhookDeliverer {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDeliverer{
		url: url,
		httpClient: resty.New().
			SetHeader("User-Agent", "Elva-Accounting/1.0").
			SetTimeout(timeout),
	}
}

// Deliver posts the notification as JSON. The notification id is sent as an
// idempotency key because stream delivery is at-least-once.
func (d *WebhookDeliverer) Deliver(ctx context.Context, n model.QuotaNotification) error {
	req := d.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", strconv.FormatInt(n.ID, 10)).
		SetBody(n)
	if n.TraceID != "" {
		req.SetHeader("X-Trace-Id", n.TraceID)
	}

	resp, err := req.Post(d.url)
	if err != nil {
		return fmt.Errorf("notification webhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook error (%d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}
