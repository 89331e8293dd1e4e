package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/synthflow/landing-platform/internal/billing"
	"github.com/synthflow/landing-platform/internal/funnel"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// FunnelHandler exposes the checkout funnel over HTTP. Each session is a
// server-side state machine the page drives step by step.
type FunnelHandler struct {
	ctrl   *funnel.Controller
	logger *logging.Logger
}

// NewFunnelHandler creates a new funnel handler.
func NewFunnelHandler(ctrl *funnel.Controller, logger *logging.Logger) *FunnelHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FunnelHandler{ctrl: ctrl, logger: logger}
}

// SessionResponse is the funnel session as rendered to the page.
type SessionResponse struct {
	ID         string                 `json:"id"`
	Step       funnel.Step            `json:"step"`
	Plan       funnel.Plan            `json:"plan"`
	UserData   funnel.UserData        `json:"user_data"`
	Outcome    funnel.Outcome         `json:"outcome,omitempty"`
	Processing []funnel.SubStepStatus `json:"processing,omitempty"`
}

func sessionResponse(sess *funnel.Session) SessionResponse {
	return SessionResponse{
		ID:         sess.ID,
		Step:       sess.State.Step,
		Plan:       sess.State.SelectedPlan,
		UserData:   sess.State.UserData,
		Outcome:    sess.State.Outcome,
		Processing: sess.Processing,
	}
}

// StartSessionRequest carries the landing context for attribution capture.
type StartSessionRequest struct {
	LandingURL string `json:"landing_url"`
	Referrer   string `json:"referrer"`
}

// StartSession handles POST /funnel/sessions.
func (h *FunnelHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if r.Body != nil {
		// An empty body is fine: direct visits carry no attribution.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Referrer == "" {
		req.Referrer = r.Header.Get("Referer")
	}

	sess, err := h.ctrl.Start(r.Context(), req.LandingURL, req.Referrer)
	if err != nil {
		h.logger.Error("failed to start funnel session", "error", err)
		jsonError(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// GetSession handles GET /funnel/sessions/{sessionID}.
func (h *FunnelHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.ctrl.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// ListPlans handles GET /funnel/plans.
func (h *FunnelHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": funnel.Catalog()})
}

// SelectPlanRequest is the plan choice on the pricing step.
type SelectPlanRequest struct {
	Plan funnel.Plan `json:"plan"`
}

// SelectPlan handles POST /funnel/sessions/{sessionID}/plan.
func (h *FunnelHandler) SelectPlan(w http.ResponseWriter, r *http.Request) {
	var req SelectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := h.ctrl.SelectPlan(r.Context(), chi.URLParam(r, "sessionID"), req.Plan)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// Register handles POST /funnel/sessions/{sessionID}/register.
func (h *FunnelHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req funnel.RegistrationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := h.ctrl.Register(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// BillingRequest is the mock card form. It is validated and discarded,
// never stored or echoed back.
type BillingRequest struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Holder string `json:"holder"`
}

// SubmitBilling handles POST /funnel/sessions/{sessionID}/billing.
func (h *FunnelHandler) SubmitBilling(w http.ResponseWriter, r *http.Request) {
	var req BillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := h.ctrl.SubmitBilling(r.Context(), chi.URLParam(r, "sessionID"), billing.CardInput{
		Number: req.Number,
		Expiry: req.Expiry,
		CVV:    req.CVV,
		Holder: req.Holder,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// Back handles POST /funnel/sessions/{sessionID}/back.
func (h *FunnelHandler) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := h.ctrl.Back(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// Accept handles POST /funnel/sessions/{sessionID}/accept.
func (h *FunnelHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sess, err := h.ctrl.Accept(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// Decline handles POST /funnel/sessions/{sessionID}/decline.
func (h *FunnelHandler) Decline(w http.ResponseWriter, r *http.Request) {
	sess, err := h.ctrl.Decline(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *FunnelHandler) respondError(w http.ResponseWriter, err error) {
	var fieldErrs funnel.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": fieldErrs,
		})
	case errors.Is(err, funnel.ErrUnknownPlan):
		jsonError(w, "unknown plan", http.StatusBadRequest)
	case errors.Is(err, funnel.ErrSessionNotFound):
		jsonError(w, "session not found", http.StatusNotFound)
	case errors.Is(err, funnel.ErrInvalidTransition):
		jsonError(w, "invalid step transition", http.StatusConflict)
	default:
		h.logger.Error("funnel request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
