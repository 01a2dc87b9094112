package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/model"
)

const defaultAuditListLimit = 100

type auditLogStore struct {
	queries *sqlc.Queries
}

func newAuditLogStore(queries *sqlc.Queries) AuditLogStore {
	return &auditLogStore{queries: queries}
}

func (s *auditLogStore) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	metadata, err := json.Marshal(nonNilMetadata(entry.Metadata))
	if err != nil {
		return fmt.Errorf("encoding audit metadata: %w", err)
	}
	return s.queries.CreateAuditLog(ctx, sqlc.CreateAuditLogParams{
		ID:        entry.ID,
		Action:    string(entry.Action),
		Timestamp: pgTimestamptz(entry.Timestamp),
		ExpiresAt: pgTimestamptz(entry.ExpiresAt),
		Metadata:  metadata,
	})
}

func (s *auditLogStore) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLogEntry, error) {
	params := sqlc.ListAuditLogsParams{
		Since:    timeToPgTimestamptz(filter.Since),
		RowLimit: filter.Limit,
	}
	if filter.Action != "" {
		action := string(filter.Action)
		params.Action = &action
	}
	if params.RowLimit <= 0 {
		params.RowLimit = defaultAuditListLimit
	}

	rows, err := s.queries.ListAuditLogs(ctx, params)
	if err != nil {
		return nil, err
	}

	result := make([]model.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.AuditLogEntry{
			Timestamp: row.Timestamp.Time,
			ExpiresAt: row.ExpiresAt.Time,
			Action:    model.AuditAction(row.Action),
			ID:        row.ID,
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decoding audit metadata %d: %w", row.ID, err)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *auditLogStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.queries.DeleteExpiredAuditLogs(ctx, pgTimestamptz(now))
}

func nonNilMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
