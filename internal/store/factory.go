package store

import (
	"elva.app/accounting/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Organizations() OrganizationStore {
	return newOrganizationStore(s.queries)
}

func (s *Stores) Widgets() WidgetStore {
	return newWidgetStore(s.queries)
}

func (s *Stores) Conversations() ConversationStore {
	return newConversationStore(s.queries)
}

func (s *Stores) Analytics() AnalyticsStore {
	return newAnalyticsStore(s.queries)
}

func (s *Stores) AuditLogs() AuditLogStore {
	return newAuditLogStore(s.queries)
}
