package dto

import (
	"time"

	"elva.app/accounting/internal/model"
)

type UpdateRetentionRequest struct {
	ConversationDays   int `json:"conversation_days"`
	AnonymizeAfterDays int `json:"anonymize_after_days"`
}

func (r UpdateRetentionRequest) Policy() model.RetentionPolicy {
	return model.RetentionPolicy{
		ConversationDays:   r.ConversationDays,
		AnonymizeAfterDays: r.AnonymizeAfterDays,
	}
}

type RetentionPolicyResponse struct {
	WidgetID           string    `json:"widget_id"`
	ConversationDays   int       `json:"conversation_days"`
	AnonymizeAfterDays int       `json:"anonymize_after_days"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func ToRetentionPolicyResponse(w *model.Widget) RetentionPolicyResponse {
	policy, _ := w.EffectiveRetention()
	return RetentionPolicyResponse{
		WidgetID:           w.ID,
		ConversationDays:   policy.ConversationDays,
		AnonymizeAfterDays: policy.AnonymizeAfterDays,
		UpdatedAt:          w.UpdatedAt,
	}
}

type AnalyticsDaysResponse struct {
	WidgetID string               `json:"widget_id"`
	Days     []model.AnalyticsDay `json:"days"`
}
