package model

import (
	"fmt"
	"time"
)

// QuotaNotification is emitted once per organization, threshold and accounting window.
type QuotaNotification struct {
	WindowStart    time.Time `json:"window_start"`
	CreatedAt      time.Time `json:"created_at"`
	OrganizationID string    `json:"organization_id"`
	ThresholdID    string    `json:"threshold_id"`
	TraceID        string    `json:"trace_id,omitempty"`
	ID             int64     `json:"id"`
	Percent        int       `json:"percent"`
	Current        int       `json:"current"`
	Limit          int       `json:"limit"`
}

// ThresholdID is the value stored in ConversationUsage.NotificationsSent.
func ThresholdID(percent int) string {
	return fmt.Sprintf("conversations_%d", percent)
}
