package leads

import "errors"

var (
	// ErrInvalidKind is returned when the lead kind is not recognized
	ErrInvalidKind = errors.New("lead kind must be registration or newsletter")

	// ErrMissingEmail is returned when the email is missing
	ErrMissingEmail = errors.New("email is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
