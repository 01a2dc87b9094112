package service

import (
	"sort"
	"time"

	"elva.app/accounting/internal/model"
)

type dayAccumulator struct {
	day               model.AnalyticsDay
	sessions          map[string]struct{}
	responseTimeSum   float64
	responseTimeCount int
	satisfactionSum   float64
	satisfactionCount int
}

// AggregateDays groups conversations by the calendar date of CreatedAt in loc
// and computes one AnalyticsDay per date. Each conversation counts once no
// matter how many messages were appended to it. Output is ordered by date and
// depends only on the input set, so repeated rebuilds produce identical days.
func AggregateDays(widgetID string, conversations []model.Conversation, loc *time.Location) []model.AnalyticsDay {
	byDate := make(map[string]*dayAccumulator)
	var order []string

	for i := range conversations {
		c := &conversations[i]
		created := c.CreatedAt.In(loc)
		date := created.Format(model.DateLayout)

		acc, ok := byDate[date]
		if !ok {
			acc = &dayAccumulator{
				day:      model.AnalyticsDay{WidgetID: widgetID, Date: date},
				sessions: make(map[string]struct{}),
			}
			byDate[date] = acc
			order = append(order, date)
		}

		acc.day.Metrics.Conversations++
		acc.day.Metrics.Messages += len(c.Messages)
		acc.day.Hourly[created.Hour()]++

		if c.SessionID != "" {
			acc.sessions[c.SessionID] = struct{}{}
		}
		for _, m := range c.Messages {
			if m.ResponseTime != nil {
				acc.responseTimeSum += *m.ResponseTime
				acc.responseTimeCount++
			}
		}
		if c.Satisfaction != nil {
			acc.satisfactionSum += *c.Satisfaction
			acc.satisfactionCount++
		}
		// UpdatedAt tracks the source data, not the rebuild clock.
		if c.UpdatedAt.After(acc.day.UpdatedAt) {
			acc.day.UpdatedAt = c.UpdatedAt.UTC()
		}
	}

	sort.Strings(order)

	days := make([]model.AnalyticsDay, 0, len(order))
	for _, date := range order {
		acc := byDate[date]
		acc.day.Metrics.UniqueUsers = len(acc.sessions)
		if acc.responseTimeCount > 0 {
			acc.day.Metrics.AvgResponseTime = acc.responseTimeSum / float64(acc.responseTimeCount)
		}
		if acc.satisfactionCount > 0 {
			avg := acc.satisfactionSum / float64(acc.satisfactionCount)
			acc.day.Metrics.Satisfaction = &avg
		}
		days = append(days, acc.day)
	}
	return days
}
