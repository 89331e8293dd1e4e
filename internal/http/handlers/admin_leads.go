package handlers

import (
	"net/http"
	"strconv"

	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// AdminLeadsHandler exposes collected leads to operators.
type AdminLeadsHandler struct {
	leads  leads.Repository
	logger *logging.Logger
}

// NewAdminLeadsHandler creates a new admin leads handler.
func NewAdminLeadsHandler(repo leads.Repository, logger *logging.Logger) *AdminLeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLeadsHandler{leads: repo, logger: logger}
}

// LeadsListResponse is the admin listing payload.
type LeadsListResponse struct {
	Leads []*leads.Lead `json:"leads"`
	Count int           `json:"count"`
}

// ListLeads handles GET /admin/leads?kind=&limit=&offset=.
func (h *AdminLeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	if h.leads == nil {
		jsonError(w, "lead storage not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	result, err := h.leads.List(r.Context(), leads.ListLeadsFilter{
		Kind:   q.Get("kind"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		jsonError(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if result == nil {
		result = []*leads.Lead{}
	}

	writeJSON(w, http.StatusOK, LeadsListResponse{Leads: result, Count: len(result)})
}
