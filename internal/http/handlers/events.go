package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/synthflow/landing-platform/internal/analytics"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// EventsHandler accepts page-side analytics events and fans them out through
// the emitter, so ad blockers stopping direct sink calls in the browser do
// not blind the funnel.
type EventsHandler struct {
	emitter *analytics.Emitter
	logger  *logging.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(emitter *analytics.Emitter, logger *logging.Logger) *EventsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &EventsHandler{emitter: emitter, logger: logger}
}

// EventRequest is the wire shape of POST /api/events.
type EventRequest struct {
	Event     string           `json:"event"`
	SessionID string           `json:"session_id,omitempty"`
	Data      analytics.Fields `json:"data,omitempty"`
}

// TrackEvent handles POST /api/events. Delivery is best-effort; the page
// gets an acknowledgement as soon as the event is accepted.
func (h *EventsHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Event) == "" {
		jsonError(w, "Event name is required", http.StatusBadRequest)
		return
	}

	h.emitter.Emit(r.Context(), req.SessionID, req.Event, req.Data)
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
