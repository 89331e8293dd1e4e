package funnel

import (
	"regexp"
	"strings"
)

// FieldErrors maps form field names to visitor-facing validation messages.
type FieldErrors map[string]string

// Error joins the messages so FieldErrors satisfies the error interface.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "funnel: validation failed: " + strings.Join(parts, "; ")
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegistrationInput is the registration form as submitted.
type RegistrationInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Agreed bool   `json:"agreed"`
}

// ValidateRegistration checks the registration form. A nil map means the
// input is acceptable. Name comparison uses the trimmed value but the
// original spelling is preserved for storage.
func ValidateRegistration(in RegistrationInput) FieldErrors {
	errs := make(FieldErrors)
	if len(strings.TrimSpace(in.Name)) < 2 {
		errs["name"] = "Введите имя (минимум 2 символа)"
	}
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		errs["email"] = "Введите корректный email"
	}
	if !in.Agreed {
		errs["agreed"] = "Необходимо согласие с условиями"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
