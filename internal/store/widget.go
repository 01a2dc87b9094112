package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/model"
)

type widgetStore struct {
	queries *sqlc.Queries
}

func newWidgetStore(queries *sqlc.Queries) WidgetStore {
	return &widgetStore{queries: queries}
}

func (s *widgetStore) GetByID(ctx context.Context, id string) (*model.Widget, error) {
	row, err := s.queries.GetWidget(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toWidgetModel(row), nil
}

func (s *widgetStore) List(ctx context.Context) ([]model.Widget, error) {
	rows, err := s.queries.ListWidgets(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.Widget, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toWidgetModel(row))
	}
	return result, nil
}

func (s *widgetStore) UpdateRetention(ctx context.Context, id string, policy model.RetentionPolicy) error {
	conversationDays := int32(policy.ConversationDays)
	anonymizeDays := int32(policy.AnonymizeAfterDays)
	n, err := s.queries.UpdateWidgetRetention(ctx, sqlc.UpdateWidgetRetentionParams{
		ConversationDays:   &conversationDays,
		AnonymizeAfterDays: &anonymizeDays,
		ID:                 id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// toWidgetModel keeps a half-set policy so EffectiveRetention can report the fallback.
func toWidgetModel(row sqlc.Widget) *model.Widget {
	w := &model.Widget{
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
	}
	if row.RetentionConversationDays != nil || row.RetentionAnonymizeAfterDays != nil {
		w.DataRetention = &model.RetentionPolicy{
			ConversationDays:   derefInt32(row.RetentionConversationDays),
			AnonymizeAfterDays: derefInt32(row.RetentionAnonymizeAfterDays),
		}
	}
	return w
}
