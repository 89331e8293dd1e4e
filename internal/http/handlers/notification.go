package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/internal/notify"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// NotificationHandler implements the operator notification endpoint the
// landing page calls on funnel milestones.
type NotificationHandler struct {
	notifier *notify.Service
	leads    leads.Repository
	logger   *logging.Logger
}

// NewNotificationHandler creates a new notification handler. leads may be
// nil when lead persistence is disabled.
func NewNotificationHandler(notifier *notify.Service, repo leads.Repository, logger *logging.Logger) *NotificationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationHandler{notifier: notifier, leads: repo, logger: logger}
}

// NotificationRequest is the wire shape of POST /api/send-notification.
type NotificationRequest struct {
	Type   string     `json:"type"`
	Name   string     `json:"name,omitempty"`
	Email  string     `json:"email"`
	Plan   string     `json:"plan,omitempty"`
	Source string     `json:"source,omitempty"`
	UTM    notify.UTM `json:"utm,omitempty"`
}

// SendNotification handles POST /api/send-notification. Delivery is
// synchronous: the page only fires this on milestones where a round trip is
// acceptable, and the caller learns whether operators were actually told.
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	kind := notify.Kind(req.Type)
	if !kind.Valid() {
		jsonError(w, "Unknown notification type", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		jsonError(w, "Email is required", http.StatusBadRequest)
		return
	}

	h.recordLead(r, kind, req)

	err := h.notifier.Send(r.Context(), notify.Payload{
		Kind:   kind,
		Name:   req.Name,
		Email:  req.Email,
		Plan:   req.Plan,
		Source: req.Source,
		UTM:    req.UTM,
	})
	if err != nil {
		h.logger.Error("notification send failed", "error", err, "kind", kind)
		jsonErrorDetails(w, "Failed to send notification", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// recordLead persists registration and newsletter contacts. Payment attempts
// reference a lead already recorded at registration.
func (h *NotificationHandler) recordLead(r *http.Request, kind notify.Kind, req NotificationRequest) {
	if h.leads == nil || (kind != notify.KindRegistration && kind != notify.KindNewsletter) {
		return
	}
	_, err := h.leads.Create(r.Context(), &leads.CreateLeadRequest{
		Kind:        string(kind),
		Name:        req.Name,
		Email:       req.Email,
		Plan:        req.Plan,
		Source:      req.Source,
		UTMSource:   req.UTM.Source,
		UTMMedium:   req.UTM.Medium,
		UTMCampaign: req.UTM.Campaign,
	})
	if err != nil {
		h.logger.Warn("failed to record lead", "error", err, "kind", kind)
	}
}
