package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/model"
)

type organizationStore struct {
	queries *sqlc.Queries
}

func newOrganizationStore(queries *sqlc.Queries) OrganizationStore {
	return &organizationStore{queries: queries}
}

func (s *organizationStore) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	row, err := s.queries.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toOrganizationModel(row), nil
}

func (s *organizationStore) List(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.queries.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.Organization, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toOrganizationModel(row))
	}
	return result, nil
}

func (s *organizationStore) ResetUsageWindow(ctx context.Context, id string, expectedLastReset, windowStart time.Time, limit int) (bool, error) {
	n, err := s.queries.ResetOrganizationUsageWindow(ctx, sqlc.ResetOrganizationUsageWindowParams{
		UsageLimit:        int32(limit),
		WindowStart:       pgTimestamptz(windowStart),
		ID:                id,
		ExpectedLastReset: pgTimestamptz(expectedLastReset),
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *organizationStore) IncrementConversations(ctx context.Context, id string, limit int) (*model.ConversationUsage, error) {
	row, err := s.queries.IncrementOrganizationConversations(ctx, sqlc.IncrementOrganizationConversationsParams{
		UsageLimit: int32(limit),
		ID:         id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.ConversationUsage{
		LastReset:         row.UsageLastReset.Time,
		NotificationsSent: row.UsageNotificationsSent,
		Current:           int(row.UsageCurrent),
		Limit:             int(row.UsageLimit),
		Overage:           int(row.UsageOverage),
	}, nil
}

func (s *organizationStore) ClaimNotification(ctx context.Context, id string, windowStart time.Time, thresholdID string) (bool, error) {
	n, err := s.queries.ClaimOrganizationNotification(ctx, sqlc.ClaimOrganizationNotificationParams{
		ThresholdID: thresholdID,
		ID:          id,
		WindowStart: pgTimestamptz(windowStart),
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *organizationStore) ReleaseNotification(ctx context.Context, id string, windowStart time.Time, thresholdID string) error {
	return s.queries.ReleaseOrganizationNotification(ctx, sqlc.ReleaseOrganizationNotificationParams{
		ThresholdID: thresholdID,
		ID:          id,
		WindowStart: pgTimestamptz(windowStart),
	})
}

func (s *organizationStore) SetUsage(ctx context.Context, id string, windowStart time.Time, current, limit int) (bool, error) {
	n, err := s.queries.SetOrganizationUsage(ctx, sqlc.SetOrganizationUsageParams{
		UsageCurrent: int32(current),
		UsageLimit:   int32(limit),
		UsageOverage: int32(model.Overage(current, limit)),
		ID:           id,
		WindowStart:  pgTimestamptz(windowStart),
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func toOrganizationModel(row sqlc.Organization) *model.Organization {
	return &model.Organization{
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
		LimitOverride: int32ToIntPtr(row.ConversationLimitOverride),
		Usage: model.ConversationUsage{
			LastReset:         row.UsageLastReset.Time,
			NotificationsSent: row.UsageNotificationsSent,
			Current:           int(row.UsageCurrent),
			Limit:             int(row.UsageLimit),
			Overage:           int(row.UsageOverage),
		},
		ID:   row.ID,
		Name: row.Name,
		Plan: model.Plan(row.Plan),
	}
}
