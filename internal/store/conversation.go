package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/model"
)

type conversationStore struct {
	queries *sqlc.Queries
}

func newConversationStore(queries *sqlc.Queries) ConversationStore {
	return &conversationStore{queries: queries}
}

func (s *conversationStore) CountByOrganizationSince(ctx context.Context, organizationID string, since time.Time) (int, error) {
	count, err := s.queries.CountConversationsByOrganizationSince(ctx, sqlc.CountConversationsByOrganizationSinceParams{
		OrganizationID: organizationID,
		Since:          pgTimestamptz(since),
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *conversationStore) DeleteByWidgetBefore(ctx context.Context, widgetID string, cutoff time.Time) (int64, error) {
	return s.queries.DeleteConversationsByWidgetBefore(ctx, sqlc.DeleteConversationsByWidgetBeforeParams{
		WidgetID: widgetID,
		Cutoff:   pgTimestamptz(cutoff),
	})
}

func (s *conversationStore) AnonymizeByWidgetBefore(ctx context.Context, widgetID string, cutoff, now time.Time) (int64, error) {
	return s.queries.AnonymizeConversationsByWidgetBefore(ctx, sqlc.AnonymizeConversationsByWidgetBeforeParams{
		AnonymizedUserID: model.AnonymizedUserID,
		AnonymizedAt:     pgTimestamptz(now),
		WidgetID:         widgetID,
		Cutoff:           pgTimestamptz(cutoff),
	})
}

func (s *conversationStore) ListByWidget(ctx context.Context, widgetID string, from, to *time.Time) ([]model.Conversation, error) {
	rows, err := s.queries.ListConversationsByWidget(ctx, sqlc.ListConversationsByWidgetParams{
		WidgetID:    widgetID,
		CreatedFrom: timeToPgTimestamptz(from),
		CreatedTo:   timeToPgTimestamptz(to),
	})
	if err != nil {
		return nil, err
	}

	result := make([]model.Conversation, 0, len(rows))
	for _, row := range rows {
		c, err := toConversationModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, nil
}

func toConversationModel(row sqlc.Conversation) (*model.Conversation, error) {
	c := &model.Conversation{
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
		Satisfaction:   row.Satisfaction,
		AnonymizedAt:   pgTimestamptzToTime(row.AnonymizedAt),
		UserAgent:      row.UserAgent,
		Referrer:       row.Referrer,
		IPAddress:      row.IpAddress,
		ID:             row.ID,
		WidgetID:       row.WidgetID,
		OrganizationID: row.OrganizationID,
		SessionID:      row.SessionID,
		UserID:         row.UserID,
		Anonymized:     row.Anonymized,
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &c.Messages); err != nil {
			return nil, fmt.Errorf("decoding messages of conversation %s: %w", row.ID, err)
		}
	}
	return c, nil
}
