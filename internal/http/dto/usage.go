package dto

import (
	"time"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
)

type QuotaDecisionResponse struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
	Overage int  `json:"overage"`
}

func ToQuotaDecisionResponse(d service.QuotaDecision) QuotaDecisionResponse {
	return QuotaDecisionResponse{
		Allowed: d.Allowed,
		Current: d.Current,
		Limit:   d.Limit,
		Overage: d.Overage,
	}
}

type UsageResponse struct {
	OrganizationID    string    `json:"organization_id"`
	Current           int       `json:"current"`
	Limit             int       `json:"limit"`
	Overage           int       `json:"overage"`
	LastReset         time.Time `json:"last_reset"`
	NotificationsSent []string  `json:"notifications_sent"`
}

func ToUsageResponse(orgID string, u *model.ConversationUsage) UsageResponse {
	sent := u.NotificationsSent
	if sent == nil {
		sent = []string{}
	}
	return UsageResponse{
		OrganizationID:    orgID,
		Current:           u.Current,
		Limit:             u.Limit,
		Overage:           u.Overage,
		LastReset:         u.LastReset,
		NotificationsSent: sent,
	}
}
