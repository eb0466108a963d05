package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/integration"
	"github.com/technosupport/secops/internal/middleware"
)

// Sessions hands out the per-user facade.
type Sessions interface {
	Get(ctx context.Context, tenantID, userID uuid.UUID) *integration.Facade
	Drop(tenantID, userID uuid.UUID) bool
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// facadeFor resolves the caller's session facade, writing the error response on failure.
func facadeFor(w http.ResponseWriter, r *http.Request, s Sessions) (*integration.Facade, bool) {
	ac, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	tenantID, userID, err := ac.IDs()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return s.Get(r.Context(), tenantID, userID), true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// failureMessage prefers the facade's own message over the generic fallback.
func failureMessage(f *integration.Facade, fallback string) string {
	if msg := f.State().Error; msg != "" {
		return msg
	}
	return fallback
}
