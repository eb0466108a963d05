package cameras

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/data"
)

var ErrTenantUnresolved = errors.New("tenant could not be resolved")

const (
	TenantResolutionSession  = "session"
	TenantResolutionFirstRow = "first_row"
)

// TenantResolver picks the tenant a new camera row is written under.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, sessionTenant uuid.UUID) (uuid.UUID, error)
}

// SessionTenantResolver uses the caller's authenticated tenant.
type SessionTenantResolver struct{}

func (SessionTenantResolver) ResolveTenant(ctx context.Context, sessionTenant uuid.UUID) (uuid.UUID, error) {
	if sessionTenant == uuid.Nil {
		return uuid.Nil, ErrTenantUnresolved
	}
	return sessionTenant, nil
}

type TenantLookup interface {
	First(ctx context.Context) (*data.Tenant, error)
}

// FirstTenantResolver takes the oldest tenant row regardless of the session.
// Only correct for single-tenant deployments.
type FirstTenantResolver struct {
	Tenants TenantLookup
}

func (r FirstTenantResolver) ResolveTenant(ctx context.Context, _ uuid.UUID) (uuid.UUID, error) {
	t, err := r.Tenants.First(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrTenantUnresolved, err)
	}
	return t.ID, nil
}

func NewTenantResolver(mode string, lookup TenantLookup) (TenantResolver, error) {
	switch mode {
	case "", TenantResolutionSession:
		return SessionTenantResolver{}, nil
	case TenantResolutionFirstRow:
		if lookup == nil {
			return nil, errors.New("first_row tenant resolution needs a tenant lookup")
		}
		return FirstTenantResolver{Tenants: lookup}, nil
	}
	return nil, fmt.Errorf("unknown tenant resolution mode %q", mode)
}
