package api

import (
	"log"
	"net/http"
	"time"

	"github.com/technosupport/secops/internal/auth"
	"github.com/technosupport/secops/internal/middleware"
)

type AuthHandler struct {
	Tokens    middleware.TokenValidator
	Blacklist auth.TokenBlacklist
	Sessions  Sessions
}

// POST /api/v1/session/logout
// Revokes the bearer token for its remaining lifetime and closes the session facade.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Tokens.ValidateToken(middleware.BearerToken(r))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Blacklist.AddToBlacklist(r.Context(), claims.TenantID, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		log.Printf("[AUTH] blacklist token %s: %v", claims.ID, err)
		respondError(w, http.StatusServiceUnavailable, "Logout could not be completed")
		return
	}

	if ac, ok := middleware.GetAuthContext(r.Context()); ok {
		if tenantID, userID, err := ac.IDs(); err == nil {
			h.Sessions.Drop(tenantID, userID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
