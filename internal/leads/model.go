package leads

import (
	"strings"
	"time"
)

// Lead is a captured contact: a funnel registration or a newsletter signup.
// This is the data the fake-door test exists to collect.
type Lead struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // registration or newsletter
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email"`
	Plan        string    `json:"plan,omitempty"`
	Source      string    `json:"source,omitempty"`
	UTMSource   string    `json:"utm_source,omitempty"`
	UTMMedium   string    `json:"utm_medium,omitempty"`
	UTMCampaign string    `json:"utm_campaign,omitempty"`
	EarlyAccess bool      `json:"early_access"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateLeadRequest represents a lead to be stored.
type CreateLeadRequest struct {
	Kind        string
	Name        string
	Email       string
	Plan        string
	Source      string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// Validate validates the create lead request.
func (r *CreateLeadRequest) Validate() error {
	if r.Kind != "registration" && r.Kind != "newsletter" {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

// ListLeadsFilter narrows List results.
type ListLeadsFilter struct {
	Kind   string
	Limit  int
	Offset int
}
