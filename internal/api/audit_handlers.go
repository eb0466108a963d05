package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/middleware"
)

type EventQuerier interface {
	QueryEvents(ctx context.Context, f audit.Filter) ([]audit.AuditEvent, error)
}

type AuditHandler struct {
	Service EventQuerier
}

// GET /api/v1/audit/events?action=&limit=
func (h *AuditHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tenantID, _, err := ac.IDs()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{TenantID: tenantID, Action: q.Get("action")}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = l
	}

	events, err := h.Service.QueryEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}
