package data

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
)

// DBTX is a common interface for *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Models groups the table models sharing one connection.
type Models struct {
	Integrations IntegrationConfigModel
	CloudCameras CloudCameraModel
	Tenants      TenantModel
}

func NewModels(db DBTX) Models {
	return Models{
		Integrations: IntegrationConfigModel{DB: db},
		CloudCameras: CloudCameraModel{DB: db},
		Tenants:      TenantModel{DB: db},
	}
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
