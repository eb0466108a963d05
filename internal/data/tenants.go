package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type TenantModel struct {
	DB DBTX
}

// First returns the oldest tenant row.
func (m TenantModel) First(ctx context.Context) (*Tenant, error) {
	query := `SELECT id, name, created_at FROM tenants ORDER BY created_at ASC LIMIT 1`

	var t Tenant
	err := m.DB.QueryRowContext(ctx, query).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
