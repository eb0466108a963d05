package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// IntegrationConfig is one row of hikvision_integrations.
// Secret columns may hold sealed values; callers decide how to open them.
type IntegrationConfig struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	IsActive       bool
	APIURL         string
	AppKey         string
	AppSecret      string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type IntegrationConfigModel struct {
	DB DBTX
}

// GetActive returns the active integration row for a tenant.
func (m IntegrationConfigModel) GetActive(ctx context.Context, tenantID uuid.UUID) (*IntegrationConfig, error) {
	query := `
		SELECT id, tenant_id, is_active, api_url, app_key, app_secret,
		       access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM hikvision_integrations
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY updated_at DESC
		LIMIT 1`

	var c IntegrationConfig
	var access, refresh sql.NullString
	var expires sql.NullTime

	err := m.DB.QueryRowContext(ctx, query, tenantID).Scan(
		&c.ID, &c.TenantID, &c.IsActive, &c.APIURL, &c.AppKey, &c.AppSecret,
		&access, &refresh, &expires, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	c.AccessToken = nullString(access)
	c.RefreshToken = nullString(refresh)
	if expires.Valid {
		t := expires.Time
		c.TokenExpiresAt = &t
	}
	return &c, nil
}

// UpdateTokens overwrites the token triple of one integration row.
func (m IntegrationConfigModel) UpdateTokens(ctx context.Context, id, tenantID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE hikvision_integrations
		SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $4 AND tenant_id = $5`

	res, err := m.DB.ExecContext(ctx, query, accessToken, emptyToNull(refreshToken), expiresAt.UTC(), id, tenantID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateSecrets rewrites the secret columns in place, used when sealing legacy plaintext rows.
func (m IntegrationConfigModel) UpdateSecrets(ctx context.Context, id, tenantID uuid.UUID, appSecret, accessToken, refreshToken string) error {
	query := `
		UPDATE hikvision_integrations
		SET app_secret = $1, access_token = $2, refresh_token = $3, updated_at = NOW()
		WHERE id = $4 AND tenant_id = $5`

	res, err := m.DB.ExecContext(ctx, query, appSecret, emptyToNull(accessToken), emptyToNull(refreshToken), id, tenantID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
