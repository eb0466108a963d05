package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	AuthContextKey contextKey = "auth_context"
)

// AuthContext holds the authenticated caller's identity.
type AuthContext struct {
	TenantID string
	UserID   string
	TokenID  string // jti
	Projects []string
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	val, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return val, ok
}

func WithAuthContext(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, auth)
}

// IDs parses the tenant and user ids.
func (ac *AuthContext) IDs() (tenantID, userID uuid.UUID, err error) {
	if tenantID, err = uuid.Parse(ac.TenantID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if userID, err = uuid.Parse(ac.UserID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return tenantID, userID, nil
}

// CanAccessProject is true for tenant-wide callers and for listed projects.
func (ac *AuthContext) CanAccessProject(projectID string) bool {
	if len(ac.Projects) == 0 {
		return true
	}
	for _, p := range ac.Projects {
		if p == projectID {
			return true
		}
	}
	return false
}
