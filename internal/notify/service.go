package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// Kind identifies which funnel milestone a notification reports.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindPaymentAttempt Kind = "payment_attempt"
	KindNewsletter     Kind = "newsletter"
)

// Valid reports whether k is a known notification kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRegistration, KindPaymentAttempt, KindNewsletter:
		return true
	}
	return false
}

// UTM is the campaign slice included in operator notifications.
type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
}

// IsZero reports whether no UTM field is set.
func (u UTM) IsZero() bool {
	return u.Source == "" && u.Medium == "" && u.Campaign == ""
}

// UTMFromRecord projects an attribution record onto the notification shape.
func UTMFromRecord(rec attribution.Record) UTM {
	return UTM{Source: rec.Source, Medium: rec.Medium, Campaign: rec.Campaign}
}

// Payload is what a funnel milestone hands to the dispatcher. Card data
// never appears here.
type Payload struct {
	Kind   Kind   `json:"type"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email"`
	Plan   string `json:"plan,omitempty"`
	Source string `json:"source,omitempty"`
	UTM    UTM    `json:"utm,omitempty"`
}

// ErrMissingEmail is returned when a payload has no contact email.
var ErrMissingEmail = errors.New("notify: email is required")

// Validate checks the payload shape.
func (p Payload) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("notify: unknown notification kind %q", p.Kind)
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

// Service renders operator notification emails and hands them to an email
// sender. Delivery is best-effort: the funnel never waits on it.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
	observer   Observer
	now        func() time.Time
}

// Observer is notified of delivery outcomes, for metrics.
type Observer interface {
	ObserveNotification(kind, status string)
}

// NewService creates a notification service delivering to the given
// operator recipients.
func NewService(email EmailSender, recipients []string, observer Observer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
		observer:   observer,
		now:        time.Now,
	}
}

// Send renders and delivers the notification to every operator recipient,
// aggregating failures. Callers on the funnel path use Dispatch instead.
func (s *Service) Send(ctx context.Context, p Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: no email sender or recipients configured, skipping", "kind", p.Kind)
		return nil
	}

	subject, body, html := s.render(p)

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
			HTML:    html,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "error", err, "to", recipient, "kind", p.Kind)
			s.observe(p.Kind, "error")
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: operator email sent", "to", recipient, "kind", p.Kind)
			s.observe(p.Kind, "ok")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

// Dispatch delivers the notification without blocking the caller. Failures
// are logged and swallowed: notification delivery never gates funnel
// progression. The request context is detached so an early client
// disconnect does not abort delivery.
func (s *Service) Dispatch(ctx context.Context, p Payload) {
	detached := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, 15*time.Second)
		defer cancel()
		if err := s.Send(sendCtx, p); err != nil {
			s.logger.Warn("notify: dispatch failed", "error", err, "kind", p.Kind, "email", p.Email)
		}
	}()
}

func (s *Service) observe(kind Kind, status string) {
	if s.observer != nil {
		s.observer.ObserveNotification(string(kind), status)
	}
}

func (s *Service) render(p Payload) (subject, body, html string) {
	timestamp := s.now().In(moscowTZ()).Format("02.01.2006 15:04")

	switch p.Kind {
	case KindNewsletter:
		source := p.Source
		if source == "" {
			source = "Форма в футере"
		}
		subject = fmt.Sprintf("📧 Новая подписка на рассылку - %s", p.Email)
		body = fmt.Sprintf(`Новая подписка на рассылку SynthFlow

Email: %s
Источник: %s
Время: %s%s`, p.Email, source, timestamp, utmText(p.UTM))
		html = newsletterHTML(p, source, timestamp)

	default:
		name := p.Name
		if name == "" {
			name = "Без имени"
		}
		plan := p.Plan
		if plan == "" {
			plan = "Не указан"
		}
		if p.Kind == KindPaymentAttempt {
			subject = fmt.Sprintf("💳 Попытка оплаты - %s", name)
		} else {
			subject = fmt.Sprintf("💰 Новая заявка на оплату - %s", name)
		}
		body = fmt.Sprintf(`Новая заявка на оплату SynthFlow

Имя: %s
Email: %s
Тариф: %s
Время: %s%s

Пользователь готов к оплате.`, name, p.Email, plan, timestamp, utmText(p.UTM))
		html = paymentHTML(p, name, plan, timestamp)
	}

	return subject, body, html
}

func utmText(u UTM) string {
	if u.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nUTM метки:")
	if u.Source != "" {
		b.WriteString("\nИсточник: " + u.Source)
	}
	if u.Medium != "" {
		b.WriteString("\nКанал: " + u.Medium)
	}
	if u.Campaign != "" {
		b.WriteString("\nКампания: " + u.Campaign)
	}
	return b.String()
}

func moscowTZ() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.UTC
	}
	return loc
}
