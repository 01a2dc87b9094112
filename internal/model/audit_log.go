package model

import "time"

// AuditRetention is how long audit entries are kept before purge.
const AuditRetention = 2 * 365 * 24 * time.Hour

type AuditAction string

const (
	AuditActionRetentionApplied       AuditAction = "retention_applied"
	AuditActionRetentionPolicyUpdated AuditAction = "retention_policy_updated"
	AuditActionUsageReconciled        AuditAction = "usage_reconciled"
	AuditActionQuotaWindowReset       AuditAction = "quota_window_reset"
	AuditActionQuotaThresholdReached  AuditAction = "quota_threshold_reached"
	AuditActionNotificationDelivered  AuditAction = "quota_notification_delivered"
	AuditActionAnalyticsRebuilt       AuditAction = "analytics_rebuilt"
	AuditActionAuditLogPurged         AuditAction = "audit_log_purged"
)

type AuditLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	ExpiresAt time.Time      `json:"expires_at"`
	Metadata  map[string]any `json:"metadata"`
	Action    AuditAction    `json:"action"`
	ID        int64          `json:"id"`
}
