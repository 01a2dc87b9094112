package model

import "time"

// AnonymizedUserID replaces the user id of anonymized conversations.
const AnonymizedUserID = "anonymized"

// Conversation is one end-user chat session. CreatedAt is fixed at creation;
// appending messages mutates the document in place.
type Conversation struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Satisfaction   *float64   `json:"satisfaction,omitempty"`
	AnonymizedAt   *time.Time `json:"anonymized_at,omitempty"`
	UserAgent      *string    `json:"user_agent,omitempty"`
	Referrer       *string    `json:"referrer,omitempty"`
	IPAddress      *string    `json:"ip_address,omitempty"`
	ID             string     `json:"id"`
	WidgetID       string     `json:"widget_id"`
	OrganizationID string     `json:"organization_id"`
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	Messages       []Message  `json:"messages"`
	Anonymized     bool       `json:"anonymized"`
}

type Message struct {
	Timestamp time.Time `json:"timestamp"`
	// ResponseTime is the assistant latency in milliseconds, set on assistant replies only.
	ResponseTime *float64 `json:"response_time,omitempty"`
	Role         string   `json:"role"`
	Content      string   `json:"content"`
}

// Anonymize strips content and PII in place. Calling it twice is a no-op.
func (c *Conversation) Anonymize(now time.Time) {
	if c.Anonymized {
		return
	}
	c.Messages = []Message{}
	c.UserID = AnonymizedUserID
	c.UserAgent = nil
	c.Referrer = nil
	c.IPAddress = nil
	c.Anonymized = true
	c.AnonymizedAt = &now
}
