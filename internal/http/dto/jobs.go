package dto

import (
	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/service"
)

type ReconcileRequest struct {
	OrganizationIDs []string `json:"organization_ids"`
}

type RetentionRequest struct {
	WidgetIDs []string `json:"widget_ids"`
}

type AnalyticsRebuildRequest struct {
	WidgetIDs []string `json:"widget_ids"`
	From      *string  `json:"from"`
	To        *string  `json:"to"`
}

type WidgetRetentionResponse struct {
	WidgetID           string `json:"widgetId"`
	Status             string `json:"status"`
	Error              string `json:"error,omitempty"`
	Deleted            int64  `json:"deleted"`
	Anonymized         int64  `json:"anonymized"`
	ConversationDays   int    `json:"conversationDays"`
	AnonymizeAfterDays int    `json:"anonymizeAfterDays"`
	DefaultsApplied    bool   `json:"defaultsApplied"`
}

type RetentionSummaryResponse struct {
	Deleted          int64                     `json:"deleted"`
	Anonymized       int64                     `json:"anonymized"`
	WidgetsProcessed int                       `json:"widgetsProcessed"`
	WidgetsFailed    int                       `json:"widgetsFailed"`
	WidgetsSkipped   int                       `json:"widgetsSkipped"`
	Results          []WidgetRetentionResponse `json:"results"`
}

func ToRetentionSummaryResponse(s *service.RetentionSummary) RetentionSummaryResponse {
	results := make([]WidgetRetentionResponse, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, WidgetRetentionResponse{
			WidgetID:           r.WidgetID,
			Status:             r.Status,
			Error:              r.Error,
			Deleted:            r.Deleted,
			Anonymized:         r.Anonymized,
			ConversationDays:   r.Policy.ConversationDays,
			AnonymizeAfterDays: r.Policy.AnonymizeAfterDays,
			DefaultsApplied:    r.DefaultsApplied,
		})
	}
	return RetentionSummaryResponse{
		Deleted:          s.Deleted,
		Anonymized:       s.Anonymized,
		WidgetsProcessed: s.WidgetsProcessed,
		WidgetsFailed:    s.WidgetsFailed,
		WidgetsSkipped:   s.WidgetsSkipped,
		Results:          results,
	}
}

type ItemResultResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type BatchResponse struct {
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Results   []ItemResultResponse `json:"results"`
}

func ToBatchResponse(b *service.BatchResult) BatchResponse {
	results := make([]ItemResultResponse, 0, len(b.Results))
	for _, r := range b.Results {
		results = append(results, ItemResultResponse(r))
	}
	return BatchResponse{
		Succeeded: b.Succeeded,
		Failed:    b.Failed,
		Skipped:   b.Skipped,
		Results:   results,
	}
}

type RebuildResponse struct {
	BatchResponse
	Days          int `json:"days"`
	Conversations int `json:"conversations"`
}

func ToRebuildResponse(s *service.RebuildSummary) RebuildResponse {
	return RebuildResponse{
		BatchResponse: ToBatchResponse(&s.BatchResult),
		Days:          s.Days,
		Conversations: s.Conversations,
	}
}

type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

type AuditLogsResponse struct {
	Entries []model.AuditLogEntry `json:"entries"`
}
