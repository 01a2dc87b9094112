package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by the collectors below.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
	// A batch job that finished with some failed items.
	StatusPartial = "partial"
)

var (
	// Quota increments on the conversation-created path
	QuotaIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "quota_increments_total",
			Help:      "Conversation usage increments by outcome",
		},
		[]string{"status"},
	)

	QuotaWindowResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "quota_window_resets_total",
			Help:      "Monthly usage windows started",
		},
	)

	QuotaNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "quota_notifications_total",
			Help:      "Quota threshold notifications by threshold and outcome",
		},
		[]string{"threshold", "status"},
	)

	// Batch job runs (retention, reconcile, analytics, audit_purge)
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "job_runs_total",
			Help:      "Batch job runs by outcome",
		},
		[]string{"job", "status"},
	)

	JobItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "job_items_total",
			Help:      "Per-scope batch job items by outcome",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "job_duration_seconds",
			Help:      "Batch job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)

	ConversationsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "conversations_deleted_total",
			Help:      "Conversations removed by retention",
		},
	)

	ConversationsAnonymizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "conversations_anonymized_total",
			Help:      "Conversations anonymized by retention",
		},
	)

	UsageDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "usage_drift_corrections_total",
			Help:      "Reconciliations that changed a stored usage counter",
		},
	)

	NotificationDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "elva",
			Subsystem: "accounting",
			Name:      "notification_deliveries_total",
			Help:      "Quota notification webhook deliveries by outcome",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordQuotaIncrement(status string) {
	QuotaIncrementsTotal.WithLabelValues(status).Inc()
}

func RecordQuotaNotification(thresholdID, status string) {
	QuotaNotificationsTotal.WithLabelValues(thresholdID, status).Inc()
}

// RecordJobRun records one finished batch job run
func RecordJobRun(job, status string, durationSec float64) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(durationSec)
}

func RecordJobItem(job, status string) {
	JobItemsTotal.WithLabelValues(job, status).Inc()
}

func RecordRetention(deleted, anonymized int64) {
	ConversationsDeletedTotal.Add(float64(deleted))
	ConversationsAnonymizedTotal.Add(float64(anonymized))
}

func RecordNotificationDelivery(status string) {
	NotificationDeliveriesTotal.WithLabelValues(status).Inc()
}
