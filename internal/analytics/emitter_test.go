package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/pkg/logging"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	events []Event
	err    error
	panics bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, ev Event) error {
	if s.panics {
		panic("sink exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func newTestCapturer(t *testing.T, sessionID string, rec attribution.Record) *attribution.Capturer {
	t.Helper()
	store := attribution.NewMemoryStore()
	if err := store.Put(context.Background(), sessionID, rec); err != nil {
		t.Fatalf("seed attribution: %v", err)
	}
	return attribution.NewCapturer(store)
}

func TestEmitMergesAttribution(t *testing.T) {
	attr := newTestCapturer(t, "sess-1", attribution.Record{
		Source: "google", Medium: "cpc", Campaign: "summer2024",
	})
	sink := &recordingSink{name: "rec"}
	emitter := NewEmitter([]Sink{sink}, attr, nil, logging.Default())

	emitter.Emit(context.Background(), "sess-1", EventRegistrationComplete, Fields{
		"plan_name": "yearly",
	})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Fields["utm_campaign"] != "summer2024" {
		t.Errorf("attribution not merged: %v", ev.Fields)
	}
	if ev.Fields["plan_name"] != "yearly" {
		t.Errorf("event fields lost: %v", ev.Fields)
	}
}

func TestEmitExplicitFieldsWin(t *testing.T) {
	attr := newTestCapturer(t, "sess-1", attribution.Record{Source: "google"})
	sink := &recordingSink{name: "rec"}
	emitter := NewEmitter([]Sink{sink}, attr, nil, logging.Default())

	emitter.Emit(context.Background(), "sess-1", EventInterest, Fields{
		"utm_source": "override",
	})

	if got := sink.events[0].Fields["utm_source"]; got != "override" {
		t.Fatalf("expected explicit field to win, got %v", got)
	}
}

func TestEmitStripsEmptyValues(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	emitter := NewEmitter([]Sink{sink}, nil, nil, logging.Default())

	emitter.Emit(context.Background(), "", "newsletter_signup", Fields{
		"email_domain": "example.com",
		"utm_source":   "",
		"utm_medium":   nil,
	})

	fields := sink.events[0].Fields
	if _, ok := fields["utm_source"]; ok {
		t.Error("empty string field should be stripped")
	}
	if _, ok := fields["utm_medium"]; ok {
		t.Error("nil field should be stripped")
	}
	if fields["email_domain"] != "example.com" {
		t.Errorf("real field lost: %v", fields)
	}
}

func TestEmitIsolatesSinkFailures(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	panicking := &recordingSink{name: "panicking", panics: true}
	healthy := &recordingSink{name: "healthy"}
	emitter := NewEmitter([]Sink{failing, panicking, healthy}, nil, nil, logging.Default())

	// Must not panic and must still reach the healthy sink.
	emitter.Emit(context.Background(), "", EventLanding, nil)

	if len(healthy.events) != 1 {
		t.Fatalf("healthy sink not reached after sibling failures, got %d events", len(healthy.events))
	}
}

func TestEmitNoSinksIsNotAnError(t *testing.T) {
	emitter := NewEmitter(nil, nil, nil, logging.Default())
	// Degrades to local logging; nothing to assert beyond not panicking.
	emitter.Emit(context.Background(), "", EventLanding, Fields{"x": 1})
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveEvent(event, sink, status string) {
	o.mu.Lock()
	o.counts[sink+"/"+status]++
	o.mu.Unlock()
}

func TestEmitReportsToObserver(t *testing.T) {
	obs := &countingObserver{counts: map[string]int{}}
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	healthy := &recordingSink{name: "healthy"}
	emitter := NewEmitter([]Sink{failing, healthy}, nil, obs, logging.Default())

	emitter.Emit(context.Background(), "", EventPaymentSuccess, nil)

	if obs.counts["failing/error"] != 1 {
		t.Errorf("expected failing sink error observed, got %v", obs.counts)
	}
	if obs.counts["healthy/ok"] != 1 {
		t.Errorf("expected healthy sink ok observed, got %v", obs.counts)
	}
}

func TestUmamiSinkDeliver(t *testing.T) {
	var got umamiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("umami requires a user agent")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewUmamiSink(srv.URL, "site-123")
	err := sink.Deliver(context.Background(), Event{
		Name:   EventPaymentInitiated,
		Fields: Fields{"plan_name": "yearly", "landing_page": "/"},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if got.Type != "event" || got.Payload.Website != "site-123" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Payload.Name != EventPaymentInitiated {
		t.Fatalf("unexpected event name: %s", got.Payload.Name)
	}
	if got.Payload.URL != "/" {
		t.Fatalf("expected landing page as url, got %q", got.Payload.URL)
	}
}

func TestUmamiSinkErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewUmamiSink(srv.URL, "site-123")
	if err := sink.Deliver(context.Background(), Event{Name: EventLanding}); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestNewUmamiSinkUnconfigured(t *testing.T) {
	if sink := NewUmamiSink("", "site"); sink != nil {
		t.Error("expected nil sink without host")
	}
	if sink := NewUmamiSink("https://stats.example.com", ""); sink != nil {
		t.Error("expected nil sink without website id")
	}
}

func TestWebhookSinkDeliver(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL)
	err := sink.Deliver(context.Background(), Event{Name: EventInterest, Fields: Fields{"seconds": 30}})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got["event"] != EventInterest {
		t.Fatalf("unexpected payload: %v", got)
	}
}
