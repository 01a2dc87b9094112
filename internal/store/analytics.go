package store

import (
	"context"
	"fmt"

	"elva.app/accounting/core/db/sqlc"
	"elva.app/accounting/internal/model"
)

type analyticsStore struct {
	queries *sqlc.Queries
}

func newAnalyticsStore(queries *sqlc.Queries) AnalyticsStore {
	return &analyticsStore{queries: queries}
}

func (s *analyticsStore) DeleteRange(ctx context.Context, widgetID string, from, to *string) (int64, error) {
	fromDay, err := dayKeyToPgDate(from)
	if err != nil {
		return 0, err
	}
	toDay, err := dayKeyToPgDate(to)
	if err != nil {
		return 0, err
	}
	return s.queries.DeleteAnalyticsDays(ctx, sqlc.DeleteAnalyticsDaysParams{
		WidgetID: widgetID,
		FromDay:  fromDay,
		ToDay:    toDay,
	})
}

func (s *analyticsStore) Upsert(ctx context.Context, day *model.AnalyticsDay) error {
	date, err := dayKeyToPgDate(&day.Date)
	if err != nil {
		return err
	}
	hourly := make([]int32, len(day.Hourly))
	for i, n := range day.Hourly {
		hourly[i] = int32(n)
	}
	return s.queries.UpsertAnalyticsDay(ctx, sqlc.UpsertAnalyticsDayParams{
		WidgetID:        day.WidgetID,
		Day:             date,
		Conversations:   int32(day.Metrics.Conversations),
		Messages:        int32(day.Metrics.Messages),
		UniqueUsers:     int32(day.Metrics.UniqueUsers),
		AvgResponseTime: day.Metrics.AvgResponseTime,
		Satisfaction:    day.Metrics.Satisfaction,
		Hourly:          hourly,
		UpdatedAt:       pgTimestamptz(day.UpdatedAt),
	})
}

func (s *analyticsStore) ListByWidget(ctx context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error) {
	fromDay, err := dayKeyToPgDate(from)
	if err != nil {
		return nil, err
	}
	toDay, err := dayKeyToPgDate(to)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.ListAnalyticsDays(ctx, sqlc.ListAnalyticsDaysParams{
		WidgetID: widgetID,
		FromDay:  fromDay,
		ToDay:    toDay,
	})
	if err != nil {
		return nil, err
	}

	result := make([]model.AnalyticsDay, 0, len(rows))
	for _, row := range rows {
		d, err := toAnalyticsDayModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, nil
}

func toAnalyticsDayModel(row sqlc.AnalyticsDay) (*model.AnalyticsDay, error) {
	if !row.Day.Valid {
		return nil, fmt.Errorf("analytics row for widget %s has no day", row.WidgetID)
	}
	d := &model.AnalyticsDay{
		UpdatedAt: row.UpdatedAt.Time,
		Metrics: model.DayMetrics{
			Satisfaction:    row.Satisfaction,
			Conversations:   int(row.Conversations),
			Messages:        int(row.Messages),
			UniqueUsers:     int(row.UniqueUsers),
			AvgResponseTime: row.AvgResponseTime,
		},
		WidgetID: row.WidgetID,
		Date:     row.Day.Time.Format(model.DateLayout),
	}
	for i := 0; i < len(row.Hourly) && i < len(d.Hourly); i++ {
		d.Hourly[i] = int(row.Hourly[i])
	}
	return d, nil
}
