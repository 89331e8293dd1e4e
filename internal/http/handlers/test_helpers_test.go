package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/synthflow/landing-platform/internal/analytics"
	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/internal/billing"
	"github.com/synthflow/landing-platform/internal/funnel"
	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/internal/notify"
)

// recordSink captures analytics events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Deliver(ctx context.Context, ev analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// recordEmailSender captures operator emails for assertions.
type recordEmailSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
	fail bool
}

func (s *recordEmailSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordEmailSender) messages() []notify.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.EmailMessage(nil), s.sent...)
}

type testEnv struct {
	router *chi.Mux
	sink   *recordSink
	email  *recordEmailSender
	leads  *leads.InMemoryRepository
	ctrl   *funnel.Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sink := &recordSink{}
	email := &recordEmailSender{}
	repo := leads.NewInMemoryRepository()
	attr := attribution.NewCapturer(attribution.NewMemoryStore())
	emitter := analytics.NewEmitter([]analytics.Sink{sink}, attr, nil, nil)
	notifier := notify.NewService(email, []string{"ops@synthflow.app"}, nil, nil)

	steps := billing.DefaultTimeline()
	for i := range steps {
		steps[i].Duration = 0
	}
	ctrl := funnel.NewController(funnel.ControllerDeps{
		Store:    funnel.NewMemorySessionStore(),
		Attr:     attr,
		Emitter:  emitter,
		Notifier: notifier,
		Leads:    repo,
		Timeline: billing.NewTimeline(steps),
	})
	t.Cleanup(func() { _ = ctrl.Shutdown(context.Background()) })

	fh := NewFunnelHandler(ctrl, nil)
	nh := NewNotificationHandler(notifier, repo, nil)
	eh := NewEventsHandler(emitter, nil)
	nl := NewNewsletterHandler(notifier, repo, emitter, nil)
	al := NewAdminLeadsHandler(repo, nil)

	r := chi.NewRouter()
	r.Route("/funnel", func(r chi.Router) {
		r.Get("/plans", fh.ListPlans)
		r.Post("/sessions", fh.StartSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", fh.GetSession)
			r.Post("/plan", fh.SelectPlan)
			r.Post("/register", fh.Register)
			r.Post("/billing", fh.SubmitBilling)
			r.Post("/back", fh.Back)
			r.Post("/accept", fh.Accept)
			r.Post("/decline", fh.Decline)
		})
	})
	r.Post("/api/send-notification", nh.SendNotification)
	r.Post("/api/events", eh.TrackEvent)
	r.Post("/api/newsletter", nl.Subscribe)
	r.Get("/admin/leads", al.ListLeads)

	return &testEnv{router: r, sink: sink, email: email, leads: repo, ctrl: ctrl}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func doDirect(t *testing.T, handler func(http.ResponseWriter, *http.Request), method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	return resp
}

func validBillingRequest() BillingRequest {
	return BillingRequest{
		Number: billing.TestCardNumber,
		Expiry: "12/30",
		CVV:    "123",
		Holder: "IVAN IVANOV",
	}
}
