package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ProjectScope rejects requests for a {projectID} the token does not cover.
// Must run after JWTAuth.
func ProjectScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := GetAuthContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		raw := chi.URLParam(r, "projectID")
		if _, err := uuid.Parse(raw); err != nil {
			http.Error(w, "Invalid project id", http.StatusBadRequest)
			return
		}
		if !ac.CanAccessProject(raw) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
