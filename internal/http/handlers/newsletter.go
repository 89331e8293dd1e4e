package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/synthflow/landing-platform/internal/analytics"
	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/internal/notify"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// NewsletterHandler captures footer newsletter signups outside the funnel.
type NewsletterHandler struct {
	notifier *notify.Service
	leads    leads.Repository
	emitter  *analytics.Emitter
	logger   *logging.Logger
}

// NewNewsletterHandler creates a new newsletter handler.
func NewNewsletterHandler(notifier *notify.Service, repo leads.Repository, emitter *analytics.Emitter, logger *logging.Logger) *NewsletterHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &NewsletterHandler{notifier: notifier, leads: repo, emitter: emitter, logger: logger}
}

// NewsletterRequest is the wire shape of POST /api/newsletter.
type NewsletterRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// Subscribe handles POST /api/newsletter. The subscription is recorded and
// operators notified; notification delivery never fails the signup.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		jsonError(w, "Email is required", http.StatusBadRequest)
		return
	}

	if h.leads != nil {
		if _, err := h.leads.Create(r.Context(), &leads.CreateLeadRequest{
			Kind:   "newsletter",
			Email:  req.Email,
			Source: req.Source,
		}); err != nil {
			h.logger.Error("failed to record newsletter signup", "error", err)
			jsonError(w, "Failed to record subscription", http.StatusInternalServerError)
			return
		}
	}

	h.notifier.Dispatch(r.Context(), notify.Payload{
		Kind:   notify.KindNewsletter,
		Email:  req.Email,
		Source: req.Source,
	})
	if h.emitter != nil {
		h.emitter.Emit(r.Context(), "", analytics.EventInterest, analytics.Fields{
			"action": "newsletter_signup",
			"source": req.Source,
		})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
