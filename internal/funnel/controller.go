// Package funnel implements the simulated checkout funnel: a per-session
// state machine from plan selection through registration and mock billing to
// the reveal step, with milestone analytics and operator notifications
// hanging off the transitions.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synthflow/landing-platform/internal/analytics"
	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/internal/billing"
	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/internal/notify"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// Observer is notified of funnel progression, for metrics.
type Observer interface {
	ObserveTransition(from, to Step)
	ObserveCompletion(elapsed time.Duration)
}

// Controller drives funnel sessions. It owns the side effects the pure
// transition function cannot have: persistence, analytics, notifications and
// the processing timeline.
type Controller struct {
	store    SessionStore
	attr     *attribution.Capturer
	emitter  *analytics.Emitter
	notifier *notify.Service
	leads    leads.Repository
	timeline *billing.Timeline
	observer Observer
	logger   *logging.Logger
	now      func() time.Time

	// runCtx gates background processing goroutines on process shutdown.
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// ControllerDeps bundles the controller's collaborators. Store, Attribution
// and Emitter are required; the rest degrade gracefully when nil.
type ControllerDeps struct {
	Store    SessionStore
	Attr     *attribution.Capturer
	Emitter  *analytics.Emitter
	Notifier *notify.Service
	Leads    leads.Repository
	Timeline *billing.Timeline
	Observer Observer
	Logger   *logging.Logger
}

// NewController creates a funnel controller.
func NewController(deps ControllerDeps) *Controller {
	if deps.Store == nil {
		panic("funnel: session store required")
	}
	if deps.Timeline == nil {
		deps.Timeline = billing.NewTimeline(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:     deps.Store,
		attr:      deps.Attr,
		emitter:   deps.Emitter,
		notifier:  deps.Notifier,
		leads:     deps.Leads,
		timeline:  deps.Timeline,
		observer:  deps.Observer,
		logger:    deps.Logger,
		now:       time.Now,
		runCtx:    runCtx,
		cancelRun: cancel,
	}
}

// Shutdown stops background processing goroutines and waits for them, up to
// the context deadline.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.cancelRun()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start opens a new session on the plan step, capturing campaign attribution
// from the landing URL and emitting the landing and billing_start milestones.
func (c *Controller) Start(ctx context.Context, landingURL, referrer string) (*Session, error) {
	now := c.now()
	sess := &Session{
		ID:        uuid.New().String(),
		State:     NewState(now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if c.attr != nil {
		if _, err := c.attr.Capture(ctx, sess.ID, landingURL, referrer); err != nil {
			// Attribution is enrichment, never a gate.
			c.logger.Warn("funnel: attribution capture failed", "session_id", sess.ID, "error", err)
		}
	}

	if err := c.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("funnel: store session: %w", err)
	}

	c.emit(ctx, sess.ID, analytics.EventLanding, nil)
	c.emit(ctx, sess.ID, analytics.EventBillingStart, analytics.Fields{
		"plan_name": string(sess.State.SelectedPlan),
		"price":     sess.State.SelectedPlan.PriceRUB(),
	})
	return sess, nil
}

// Get returns the current session.
func (c *Controller) Get(ctx context.Context, id string) (*Session, error) {
	return c.store.Get(ctx, id)
}

// SelectPlan records the chosen plan and advances to registration.
func (c *Controller) SelectPlan(ctx context.Context, id string, plan Plan) (*Session, error) {
	return c.apply(ctx, id, PlanSelected{Plan: plan})
}

// Register validates the registration form and advances to billing. On
// success the lead is recorded and operators are notified, neither of which
// blocks the visitor.
func (c *Controller) Register(ctx context.Context, id string, in RegistrationInput) (*Session, error) {
	if errs := ValidateRegistration(in); errs != nil {
		return nil, errs
	}

	sess, err := c.apply(ctx, id, Registered{Name: in.Name, Email: strings.TrimSpace(in.Email)})
	if err != nil {
		return nil, err
	}

	email := sess.State.UserData.Email
	c.emit(ctx, id, analytics.EventRegistrationComplete, analytics.Fields{
		"plan_name":    string(sess.State.SelectedPlan),
		"email_domain": emailDomain(email),
	})

	rec := c.readAttribution(ctx, id)
	c.recordLead(ctx, &leads.CreateLeadRequest{
		Kind:        "registration",
		Name:        in.Name,
		Email:       email,
		Plan:        string(sess.State.SelectedPlan),
		UTMSource:   rec.Source,
		UTMMedium:   rec.Medium,
		UTMCampaign: rec.Campaign,
	})
	c.dispatch(ctx, notify.Payload{
		Kind:  notify.KindRegistration,
		Name:  in.Name,
		Email: email,
		Plan:  PlanDisplayName(sess.State.SelectedPlan),
		UTM:   notify.UTMFromRecord(rec),
	})
	return sess, nil
}

// SubmitBilling validates the mock card form, advances to processing and
// schedules the simulated payment timeline. The card data is validated and
// discarded; it is never persisted, logged or forwarded.
func (c *Controller) SubmitBilling(ctx context.Context, id string, card billing.CardInput) (*Session, error) {
	check := billing.Validate(card, c.now())
	if !check.Valid() {
		return nil, FieldErrors(check.Errors)
	}
	if !check.LuhnValid {
		// Computed for parity with real processors but deliberately not
		// enforced: any well-formed number passes the simulation.
		c.logger.Debug("funnel: card failed luhn check, accepting anyway", "session_id", id, "card_type", check.CardType)
	}

	sess, err := c.apply(ctx, id, BillingSubmitted{})
	if err != nil {
		return nil, err
	}

	plan := sess.State.SelectedPlan
	c.emit(ctx, id, analytics.EventPaymentInitiated, analytics.Fields{
		"plan_name":      string(plan),
		"price":          plan.PriceRUB(),
		"payment_method": "card",
		"card_type":      check.CardType,
	})

	rec := c.readAttribution(ctx, id)
	c.dispatch(ctx, notify.Payload{
		Kind:  notify.KindPaymentAttempt,
		Name:  sess.State.UserData.Name,
		Email: sess.State.UserData.Email,
		Plan:  PlanDisplayName(plan),
		UTM:   notify.UTMFromRecord(rec),
	})

	sess.Processing = initialSubSteps(c.timeline.Steps())
	sess.UpdatedAt = c.now()
	if err := c.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("funnel: store session: %w", err)
	}

	c.runProcessing(ctx, sess.ID)
	return sess, nil
}

// Back moves one step backward where the funnel allows it.
func (c *Controller) Back(ctx context.Context, id string) (*Session, error) {
	return c.apply(ctx, id, WentBack{})
}

// Accept records the early-access opt-in on the reveal step.
func (c *Controller) Accept(ctx context.Context, id string) (*Session, error) {
	sess, err := c.apply(ctx, id, Accepted{})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, id, analytics.EventInterest, analytics.Fields{
		"action":    "early_access_accepted",
		"plan_name": string(sess.State.SelectedPlan),
	})
	if c.leads != nil && sess.State.UserData.Email != "" {
		if err := c.leads.MarkEarlyAccess(ctx, sess.State.UserData.Email); err != nil && !errors.Is(err, leads.ErrLeadNotFound) {
			c.logger.Warn("funnel: failed to flag early access", "session_id", id, "error", err)
		}
	}
	return sess, nil
}

// Decline records the opt-out on the reveal step.
func (c *Controller) Decline(ctx context.Context, id string) (*Session, error) {
	sess, err := c.apply(ctx, id, Declined{})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, id, analytics.EventInterest, analytics.Fields{
		"action":    "early_access_declined",
		"plan_name": string(sess.State.SelectedPlan),
	})
	return sess, nil
}

// apply loads the session, reduces it by one transition and stores it back.
func (c *Controller) apply(ctx context.Context, id string, tr Transition) (*Session, error) {
	sess, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := sess.State.Step
	next, err := Apply(sess.State, tr, c.now())
	if err != nil {
		return nil, err
	}
	sess.State = next
	sess.UpdatedAt = c.now()
	if from != next.Step {
		sess.Processing = nil
		if c.observer != nil {
			c.observer.ObserveTransition(from, next.Step)
		}
	}
	if err := c.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("funnel: store session: %w", err)
	}
	return sess, nil
}

// runProcessing plays the payment timeline on a background goroutine and
// auto-advances the session to reveal when it completes. The timeline is not
// tied to the originating request: the visitor polling the session sees
// sub-steps complete regardless of connection churn.
func (c *Controller) runProcessing(ctx context.Context, id string) {
	detached := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.timeline.Run(c.runCtx, func(step billing.TimelineStep, index int) {
			c.markSubStepDone(detached, id, step.ID)
		})
		if c.runCtx.Err() != nil {
			return
		}

		sess, err := c.apply(detached, id, ProcessingDone{})
		if err != nil {
			c.logger.Error("funnel: failed to complete processing", "session_id", id, "error", err)
			return
		}

		if c.observer != nil && sess.State.Metrics.CompletedAt != nil {
			c.observer.ObserveCompletion(sess.State.Metrics.CompletedAt.Sub(sess.State.Metrics.StartedAt))
		}
		plan := sess.State.SelectedPlan
		c.emit(detached, id, analytics.EventPaymentSuccess, analytics.Fields{
			"plan_name":      string(plan),
			"price":          plan.PriceRUB(),
			"transaction_id": fmt.Sprintf("order_%d", c.now().UnixMilli()),
		})
	}()
}

func (c *Controller) markSubStepDone(ctx context.Context, id, stepID string) {
	sess, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.Warn("funnel: session lost during processing", "session_id", id, "error", err)
		return
	}
	for i := range sess.Processing {
		if sess.Processing[i].ID == stepID {
			sess.Processing[i].Done = true
		}
	}
	sess.UpdatedAt = c.now()
	if err := c.store.Put(ctx, sess); err != nil {
		c.logger.Warn("funnel: failed to store sub-step progress", "session_id", id, "error", err)
	}
}

func (c *Controller) emit(ctx context.Context, sessionID, event string, fields analytics.Fields) {
	if c.emitter != nil {
		c.emitter.Emit(ctx, sessionID, event, fields)
	}
}

func (c *Controller) dispatch(ctx context.Context, p notify.Payload) {
	if c.notifier != nil {
		c.notifier.Dispatch(ctx, p)
	}
}

func (c *Controller) recordLead(ctx context.Context, req *leads.CreateLeadRequest) {
	if c.leads == nil {
		return
	}
	if _, err := c.leads.Create(ctx, req); err != nil {
		c.logger.Warn("funnel: failed to record lead", "email", req.Email, "error", err)
	}
}

func (c *Controller) readAttribution(ctx context.Context, sessionID string) attribution.Record {
	if c.attr == nil {
		return attribution.Record{}
	}
	return c.attr.Read(ctx, sessionID)
}

func initialSubSteps(steps []billing.TimelineStep) []SubStepStatus {
	out := make([]SubStepStatus, len(steps))
	for i, step := range steps {
		out[i] = SubStepStatus{ID: step.ID, Label: step.Label}
	}
	return out
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
