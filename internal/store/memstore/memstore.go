// Package memstore is an in-memory implementation of the store interfaces.
// All repositories share one mutex, so every method is atomic in the same
// way the single-statement Postgres queries are.
package memstore

import (
	"sort"
	"sync"
	"time"

	"elva.app/accounting/internal/model"
	"elva.app/accounting/internal/store"
)

// FailFunc lets tests inject infrastructure errors. op is the store method
// name ("Conversations.DeleteByWidgetBefore"), key the entity id it targets.
type FailFunc func(op, key string) error

type Store struct {
	mu            sync.Mutex
	orgs          map[string]*model.Organization
	widgets       map[string]*model.Widget
	conversations map[string]*model.Conversation
	days          map[dayKey]*model.AnalyticsDay
	audit         []model.AuditLogEntry
	fail          FailFunc
}

type dayKey struct {
	widgetID string
	date     string
}

func New() *Store {
	return &Store{
		orgs:          make(map[string]*model.Organization),
		widgets:       make(map[string]*model.Widget),
		conversations: make(map[string]*model.Conversation),
		days:          make(map[dayKey]*model.AnalyticsDay),
	}
}

func (s *Store) SetFailFunc(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

func (s *Store) check(op, key string) error {
	if s.fail == nil {
		return nil
	}
	return s.fail(op, key)
}

func (s *Store) Organizations() store.OrganizationStore { return (*organizations)(s) }
func (s *Store) Widgets() store.WidgetStore             { return (*widgets)(s) }
func (s *Store) Conversations() store.ConversationStore { return (*conversations)(s) }
func (s *Store) Analytics() store.AnalyticsStore        { return (*analytics)(s) }
func (s *Store) AuditLogs() store.AuditLogStore         { return (*auditLogs)(s) }

// --- Seeding and inspection -------------------------------------------------

func (s *Store) PutOrganization(org model.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyOrganization(org)
	s.orgs[org.ID] = &cp
}

func (s *Store) PutWidget(w model.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := w
	if w.DataRetention != nil {
		policy := *w.DataRetention
		cp.DataRetention = &policy
	}
	s.widgets[w.ID] = &cp
}

func (s *Store) PutConversation(c model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyConversation(c)
	s.conversations[c.ID] = &cp
}

// AppendMessage mutates a conversation in place the way the chat path does.
// CreatedAt is left untouched.
func (s *Store) AppendMessage(conversationID string, msg model.Message, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = at
	return true
}

func (s *Store) Conversation(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return model.Conversation{}, false
	}
	return copyConversation(*c), true
}

func (s *Store) AllConversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, copyConversation(*c))
	}
	sortConversations(out)
	return out
}

func (s *Store) AllAnalyticsDays() []model.AnalyticsDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AnalyticsDay, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WidgetID != out[j].WidgetID {
			return out[i].WidgetID < out[j].WidgetID
		}
		return out[i].Date < out[j].Date
	})
	return out
}

func (s *Store) AllAuditEntries() []model.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditLogEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func copyOrganization(org model.Organization) model.Organization {
	cp := org
	cp.Usage.NotificationsSent = append([]string{}, org.Usage.NotificationsSent...)
	if org.LimitOverride != nil {
		v := *org.LimitOverride
		cp.LimitOverride = &v
	}
	return cp
}

func copyConversation(c model.Conversation) model.Conversation {
	cp := c
	cp.Messages = append([]model.Message{}, c.Messages...)
	return cp
}

func sortConversations(cs []model.Conversation) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

func notFoundUnless(ok bool) error {
	if !ok {
		return store.ErrNotFound
	}
	return nil
}
