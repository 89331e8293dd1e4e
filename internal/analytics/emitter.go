// Package analytics fans funnel milestone events out to external sinks,
// tagging every event with the session's campaign attribution.
package analytics

import (
	"context"

	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// Milestone event names, in the causal order a completed funnel run emits
// them. Interest fires independently on engagement triggers.
const (
	EventLanding              = "landing"
	EventBillingStart         = "billing_start"
	EventRegistrationComplete = "registration_complete"
	EventPaymentInitiated     = "payment_initiated"
	EventPaymentSuccess       = "payment_success"
	EventInterest             = "interest"
)

// Fields is the event-specific payload merged with attribution on emit.
type Fields map[string]any

// Event is a named analytics event with its merged payload.
type Event struct {
	Name   string
	Fields Fields
}

// Sink delivers events to one analytics destination. Implementations must
// tolerate being called concurrently.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Observer is notified of per-sink delivery results, for metrics.
type Observer interface {
	ObserveEvent(event, sink, status string)
}

// Emitter merges attribution into event payloads and delivers them to every
// configured sink. Sink failures are isolated: one sink erroring or
// panicking never blocks the others and never reaches the caller.
type Emitter struct {
	sinks    []Sink
	attr     *attribution.Capturer
	observer Observer
	logger   *logging.Logger
}

// NewEmitter creates an emitter. attr may be nil when events carry no
// session context; observer may be nil.
func NewEmitter(sinks []Sink, attr *attribution.Capturer, observer Observer, logger *logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Emitter{sinks: sinks, attr: attr, observer: observer, logger: logger}
}

// Emit delivers a named event for a session. The stored attribution record
// is merged into fields with explicit fields winning on collision; empty
// values are stripped. With no sinks configured the event is logged locally
// and discarded. Emit never returns an error to the caller.
func (e *Emitter) Emit(ctx context.Context, sessionID, event string, fields Fields) {
	merged := make(Fields, len(fields)+7)
	if e.attr != nil && sessionID != "" {
		for k, v := range e.attr.Read(ctx, sessionID).Fields() {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	stripEmpty(merged)

	ev := Event{Name: event, Fields: merged}

	if len(e.sinks) == 0 {
		e.logger.Info("analytics event (no sinks configured)", "event", event, "fields", merged)
		return
	}

	for _, sink := range e.sinks {
		e.deliver(ctx, sink, ev)
	}
}

func (e *Emitter) deliver(ctx context.Context, sink Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analytics sink panicked", "sink", sink.Name(), "event", ev.Name, "panic", r)
			e.observe(ev.Name, sink.Name(), "panic")
		}
	}()

	if err := sink.Deliver(ctx, ev); err != nil {
		e.logger.Warn("analytics sink delivery failed", "sink", sink.Name(), "event", ev.Name, "error", err)
		e.observe(ev.Name, sink.Name(), "error")
		return
	}
	e.observe(ev.Name, sink.Name(), "ok")
}

func (e *Emitter) observe(event, sink, status string) {
	if e.observer != nil {
		e.observer.ObserveEvent(event, sink, status)
	}
}

// stripEmpty removes keys holding nil or empty-string values so absent
// attribution never shows up as empty placeholders downstream.
func stripEmpty(fields Fields) {
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			delete(fields, k)
		case string:
			if val == "" {
				delete(fields, k)
			}
		}
	}
}
