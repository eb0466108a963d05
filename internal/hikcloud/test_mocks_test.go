package hikcloud_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/hikcloud"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }

func testConfig(endpoint string, expiresAt *time.Time) *hikcloud.Config {
	return &hikcloud.Config{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Endpoint:     endpoint,
		ClientID:     "app-key",
		ClientSecret: "app-secret-1234",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expiresAt,
	}
}

// MockPersister records SaveTokens calls.
type MockPersister struct {
	Saved []*hikcloud.Config
	Err   error
}

func (m *MockPersister) SaveTokens(ctx context.Context, cfg *hikcloud.Config) error {
	m.Saved = append(m.Saved, cfg)
	return m.Err
}

// MockConfigRepo is an in-memory ConfigRepository.
type MockConfigRepo struct {
	Row       *data.IntegrationConfig
	GetErr    error
	UpdateErr error

	UpdatedAccess, UpdatedRefresh, UpdatedSecret string
	UpdatedExpiry                                time.Time
}

func (m *MockConfigRepo) GetActive(ctx context.Context, tenantID uuid.UUID) (*data.IntegrationConfig, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Row == nil || m.Row.TenantID != tenantID {
		return nil, data.ErrRecordNotFound
	}
	row := *m.Row
	return &row, nil
}

func (m *MockConfigRepo) UpdateTokens(ctx context.Context, id, tenantID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	m.UpdatedAccess, m.UpdatedRefresh, m.UpdatedExpiry = accessToken, refreshToken, expiresAt
	return m.UpdateErr
}

func (m *MockConfigRepo) UpdateSecrets(ctx context.Context, id, tenantID uuid.UUID, appSecret, accessToken, refreshToken string) error {
	m.UpdatedSecret, m.UpdatedAccess, m.UpdatedRefresh = appSecret, accessToken, refreshToken
	return m.UpdateErr
}
