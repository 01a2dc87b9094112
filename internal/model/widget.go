package model

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultConversationDays   = 30
	DefaultAnonymizeAfterDays = 90
)

var ErrInvalidRetentionPolicy = errors.New("invalid retention policy")

type Widget struct {
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DataRetention  *RetentionPolicy `json:"data_retention,omitempty"`
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
}

type RetentionPolicy struct {
	ConversationDays   int `json:"conversation_days"`
	AnonymizeAfterDays int `json:"anonymize_after_days"`
}

func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		ConversationDays:   DefaultConversationDays,
		AnonymizeAfterDays: DefaultAnonymizeAfterDays,
	}
}

// Validate rejects policies that delete on day zero or under which
// anonymization can never run because conversations are deleted first.
//
// The 30/90 defaults fail this check: they stay the fallback for widgets
// without a policy, but submitting them explicitly is rejected.
func (p RetentionPolicy) Validate() error {
	if p.ConversationDays < 1 {
		return fmt.Errorf("%w: conversation_days must be at least 1", ErrInvalidRetentionPolicy)
	}
	if p.AnonymizeAfterDays < 1 {
		return fmt.Errorf("%w: anonymize_after_days must be at least 1", ErrInvalidRetentionPolicy)
	}
	if !p.AnonymizationReachable() {
		return fmt.Errorf("%w: anonymize_after_days (%d) must be less than conversation_days (%d)",
			ErrInvalidRetentionPolicy, p.AnonymizeAfterDays, p.ConversationDays)
	}
	return nil
}

// AnonymizationReachable reports whether a conversation reaches the
// anonymization cutoff before the deletion cutoff.
func (p RetentionPolicy) AnonymizationReachable() bool {
	return p.AnonymizeAfterDays < p.ConversationDays
}

// EffectiveRetention resolves the policy the enforcer applies. Missing or
// non-positive values fall back to the defaults field by field. The bool is
// false when any default was substituted.
func (w Widget) EffectiveRetention() (RetentionPolicy, bool) {
	policy := DefaultRetentionPolicy()
	if w.DataRetention == nil {
		return policy, false
	}

	complete := true
	if w.DataRetention.ConversationDays > 0 {
		policy.ConversationDays = w.DataRetention.ConversationDays
	} else {
		complete = false
	}
	if w.DataRetention.AnonymizeAfterDays > 0 {
		policy.AnonymizeAfterDays = w.DataRetention.AnonymizeAfterDays
	} else {
		complete = false
	}
	return policy, complete
}
