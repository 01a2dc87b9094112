package model

import "time"

// DateLayout is the calendar-day key format of AnalyticsDay.
const DateLayout = "2006-01-02"

// AnalyticsDay is fully derived from the conversation store; it is only ever
// replaced by a rebuild, never patched.
type AnalyticsDay struct {
	UpdatedAt time.Time  `json:"updated_at"`
	Metrics   DayMetrics `json:"metrics"`
	WidgetID  string     `json:"widget_id"`
	Date      string     `json:"date"`
	Hourly    [24]int    `json:"hourly"`
}

type DayMetrics struct {
	Satisfaction    *float64 `json:"satisfaction"`
	Conversations   int      `json:"conversations"`
	Messages        int      `json:"messages"`
	UniqueUsers     int      `json:"unique_users"`
	AvgResponseTime float64  `json:"avg_response_time"`
}
