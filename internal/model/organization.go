package model

import "time"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanGrowth     Plan = "growth"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanGrowth, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

type Organization struct {
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LimitOverride *int              `json:"limit_override,omitempty"`
	Usage         ConversationUsage `json:"usage"`
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Plan          Plan              `json:"plan"`
}

// ConversationUsage is the monthly conversation counter of an organization.
// Current only counts conversations created at or after LastReset.
type ConversationUsage struct {
	LastReset         time.Time `json:"last_reset"`
	NotificationsSent []string  `json:"notifications_sent"`
	Current           int       `json:"current"`
	Limit             int       `json:"limit"`
	Overage           int       `json:"overage"`
}

// NextReset is when the current accounting window expires.
func (u ConversationUsage) NextReset() time.Time {
	return u.LastReset.AddDate(0, 1, 0)
}

// WindowExpired reports whether now is past the end of the current window.
func (u ConversationUsage) WindowExpired(now time.Time) bool {
	return !now.Before(u.NextReset())
}

func (u ConversationUsage) HasNotified(thresholdID string) bool {
	for _, sent := range u.NotificationsSent {
		if sent == thresholdID {
			return true
		}
	}
	return false
}

// Overage returns how far current is above limit, never negative.
func Overage(current, limit int) int {
	if current > limit {
		return current - limit
	}
	return 0
}

// StartOfMonth truncates t to the first instant of its calendar month in UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
