package memstore

import (
	"context"
	"sort"
	"time"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

type organizations Store

func (r *organizations) GetByID(_ context.Context, id string) (*model.Organization, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.GetByID", id); err != nil {
		return nil, err
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyOrganization(*org)
	return &cp, nil
}

func (r *organizations) List(_ context.Context) ([]model.Organization, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.List", ""); err != nil {
		return nil, err
	}
	out := make([]model.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, copyOrganization(*org))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *organizations) ResetUsageWindow(_ context.Context, id string, expectedLastReset, windowStart time.Time, limit int) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.ResetUsageWindow", id); err != nil {
		return false, err
	}
	org, ok := s.orgs[id]
	if !ok || !org.Usage.LastReset.Equal(expectedLastReset) {
		return false, nil
	}
	org.Usage = model.ConversationUsage{
		LastReset:         windowStart,
		NotificationsSent: []string{},
		Limit:             limit,
	}
	return true, nil
}

func (r *organizations) IncrementConversations(_ context.Context, id string, limit int) (*model.ConversationUsage, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.IncrementConversations", id); err != nil {
		return nil, err
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	org.Usage.Current++
	org.Usage.Limit = limit
	org.Usage.Overage = model.Overage(org.Usage.Current, limit)
	usage := copyOrganization(*org).Usage
	return &usage, nil
}

func (r *organizations) ClaimNotification(_ context.Context, id string, windowStart time.Time, thresholdID string) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.ClaimNotification", id); err != nil {
		return false, err
	}
	org, ok := s.orgs[id]
	if !ok || !org.Usage.LastReset.Equal(windowStart) || org.Usage.HasNotified(thresholdID) {
		return false, nil
	}
	org.Usage.NotificationsSent = append(org.Usage.NotificationsSent, thresholdID)
	return true, nil
}

func (r *organizations) ReleaseNotification(_ context.Context, id string, windowStart time.Time, thresholdID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.ReleaseNotification", id); err != nil {
		return err
	}
	org, ok := s.orgs[id]
	if !ok || !org.Usage.LastReset.Equal(windowStart) {
		return nil
	}
	kept := org.Usage.NotificationsSent[:0]
	for _, sent := range org.Usage.NotificationsSent {
		if sent != thresholdID {
			kept = append(kept, sent)
		}
	}
	org.Usage.NotificationsSent = kept
	return nil
}

func (r *organizations) SetUsage(_ context.Context, id string, windowStart time.Time, current, limit int) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Organizations.SetUsage", id); err != nil {
		return false, err
	}
	org, ok := s.orgs[id]
	if !ok || !org.Usage.LastReset.Equal(windowStart) {
		return false, nil
	}
	org.Usage.Current = current
	org.Usage.Limit = limit
	org.Usage.Overage = model.Overage(current, limit)
	return true, nil
}

type widgets Store

func (r *widgets) GetByID(_ context.Context, id string) (*model.Widget, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Widgets.GetByID", id); err != nil {
		return nil, err
	}
	w, ok := s.widgets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *widgets) List(_ context.Context) ([]model.Widget, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Widgets.List", ""); err != nil {
		return nil, err
	}
	out := make([]model.Widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *widgets) UpdateRetention(_ context.Context, id string, policy model.RetentionPolicy) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Widgets.UpdateRetention", id); err != nil {
		return err
	}
	w, ok := s.widgets[id]
	if err := notFoundUnless(ok); err != nil {
		return err
	}
	w.DataRetention = &policy
	return nil
}

type conversations Store

func (r *conversations) CountByOrganizationSince(_ context.Context, organizationID string, since time.Time) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Conversations.CountByOrganizationSince", organizationID); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range s.conversations {
		if c.OrganizationID == organizationID && !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *conversations) DeleteByWidgetBefore(_ context.Context, widgetID string, cutoff time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Conversations.DeleteByWidgetBefore", widgetID); err != nil {
		return 0, err
	}
	var deleted int64
	for id, c := range s.conversations {
		if c.WidgetID == widgetID && c.CreatedAt.Before(cutoff) {
			delete(s.conversations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *conversations) AnonymizeByWidgetBefore(_ context.Context, widgetID string, cutoff, now time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Conversations.AnonymizeByWidgetBefore", widgetID); err != nil {
		return 0, err
	}
	var anonymized int64
	for _, c := range s.conversations {
		if c.WidgetID == widgetID && c.CreatedAt.Before(cutoff) && !c.Anonymized {
			c.Anonymize(now)
			c.UpdatedAt = now
			anonymized++
		}
	}
	return anonymized, nil
}

func (r *conversations) ListByWidget(_ context.Context, widgetID string, from, to *time.Time) ([]model.Conversation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Conversations.ListByWidget", widgetID); err != nil {
		return nil, err
	}
	var out []model.Conversation
	for _, c := range s.conversations {
		if c.WidgetID != widgetID {
			continue
		}
		if from != nil && c.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !c.CreatedAt.Before(*to) {
			continue
		}
		out = append(out, copyConversation(*c))
	}
	sortConversations(out)
	return out, nil
}

type analytics Store

func inDayRange(date string, from, to *string) bool {
	if from != nil && date < *from {
		return false
	}
	if to != nil && date > *to {
		return false
	}
	return true
}

func (r *analytics) DeleteRange(_ context.Context, widgetID string, from, to *string) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Analytics.DeleteRange", widgetID); err != nil {
		return 0, err
	}
	var deleted int64
	for key := range s.days {
		if key.widgetID == widgetID && inDayRange(key.date, from, to) {
			delete(s.days, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *analytics) Upsert(_ context.Context, day *model.AnalyticsDay) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Analytics.Upsert", day.WidgetID); err != nil {
		return err
	}
	cp := *day
	s.days[dayKey{widgetID: day.WidgetID, date: day.Date}] = &cp
	return nil
}

func (r *analytics) ListByWidget(_ context.Context, widgetID string, from, to *string) ([]model.AnalyticsDay, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Analytics.ListByWidget", widgetID); err != nil {
		return nil, err
	}
	var out []model.AnalyticsDay
	for key, d := range s.days {
		if key.widgetID == widgetID && inDayRange(key.date, from, to) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type auditLogs Store

func (r *auditLogs) Create(_ context.Context, entry *model.AuditLogEntry) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("AuditLogs.Create", string(entry.Action)); err != nil {
		return err
	}
	s.audit = append(s.audit, *entry)
	return nil
}

func (r *auditLogs) List(_ context.Context, filter store.AuditLogFilter) ([]model.AuditLogEntry, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("AuditLogs.List", string(filter.Action)); err != nil {
		return nil, err
	}
	var out []model.AuditLogEntry
	for _, e := range s.audit {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > int(filter.Limit) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *auditLogs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("AuditLogs.DeleteExpired", ""); err != nil {
		return 0, err
	}
	kept := s.audit[:0]
	var deleted int64
	for _, e := range s.audit {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
			continue
		}
		deleted++
	}
	s.audit = kept
	return deleted, nil
}
