package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/auth"
	"github.com/technosupport/secops/internal/tokens"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*tokens.Claims, error)
}

type JWTAuth struct {
	tokens    TokenValidator
	blacklist auth.TokenBlacklist
}

func NewJWTAuth(t TokenValidator, b auth.TokenBlacklist) *JWTAuth {
	return &JWTAuth{tokens: t, blacklist: b}
}

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Middleware verifies the JWT and injects AuthContext.
// Browsers cannot set headers on websocket upgrades, so /ws routes also accept ?access_token=.
func (m *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := BearerToken(r)
		if tokenString == "" && strings.HasSuffix(r.URL.Path, "/ws") {
			tokenString = r.URL.Query().Get("access_token")
		}
		if tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.TokenType != tokens.Access {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// fail closed when the blacklist cannot be read
		blacklisted, err := m.blacklist.IsBlacklisted(r.Context(), claims.TenantID, claims.ID)
		if err != nil || blacklisted {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ac := &AuthContext{
			TenantID: claims.TenantID,
			UserID:   claims.UserID,
			TokenID:  claims.ID,
			Projects: claims.Projects,
		}

		ctx := WithAuthContext(r.Context(), ac)
		if uid, err := uuid.Parse(claims.UserID); err == nil {
			ctx = audit.WithActor(ctx, uid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
