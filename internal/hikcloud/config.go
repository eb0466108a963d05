package hikcloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/data"
)

const aadPurpose = "hikvision_integration_v1"

// Config is the opened integration credential set of one tenant.
type Config struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Endpoint     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}

// MaskedConfig is the view of a Config that may leave the process.
type MaskedConfig struct {
	Endpoint       string     `json:"endpoint"`
	ClientID       string     `json:"client_id"`
	ClientSecret   string     `json:"client_secret"`
	HasAccessToken bool       `json:"has_access_token"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

func (c *Config) Masked() MaskedConfig {
	m := MaskedConfig{
		Endpoint:       c.Endpoint,
		ClientID:       c.ClientID,
		ClientSecret:   MaskSecret(c.ClientSecret),
		HasAccessToken: c.AccessToken != "",
	}
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		m.TokenExpiresAt = &t
	}
	return m
}

// MaskSecret keeps at most the last four characters of s.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// SecretSealer encrypts secret columns at rest. Open must pass unsealed values through.
type SecretSealer interface {
	Seal(plaintext string, aad []byte) (string, error)
	Open(value string, aad []byte) (string, error)
}

type ConfigRepository interface {
	GetActive(ctx context.Context, tenantID uuid.UUID) (*data.IntegrationConfig, error)
	UpdateTokens(ctx context.Context, id, tenantID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateSecrets(ctx context.Context, id, tenantID uuid.UUID, appSecret, accessToken, refreshToken string) error
}

// CredentialStore reads and writes the tenant's integration row.
type CredentialStore struct {
	repo   ConfigRepository
	sealer SecretSealer
}

// NewCredentialStore builds a store. A nil sealer keeps secrets in plaintext.
func NewCredentialStore(repo ConfigRepository, sealer SecretSealer) *CredentialStore {
	return &CredentialStore{repo: repo, sealer: sealer}
}

func secretAAD(tenantID, configID uuid.UUID, field string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", tenantID, configID, aadPurpose, field))
}

func (s *CredentialStore) open(row *data.IntegrationConfig, field, value string) (string, error) {
	if s.sealer == nil {
		return value, nil
	}
	return s.sealer.Open(value, secretAAD(row.TenantID, row.ID, field))
}

func (s *CredentialStore) seal(tenantID, configID uuid.UUID, field, value string) (string, error) {
	if s.sealer == nil {
		return value, nil
	}
	return s.sealer.Seal(value, secretAAD(tenantID, configID, field))
}

// Load returns the active config of the tenant. Absence and every failure yield (nil, false).
func (s *CredentialStore) Load(ctx context.Context, tenantID uuid.UUID) (*Config, bool) {
	row, err := s.repo.GetActive(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, data.ErrRecordNotFound) {
			log.Printf("[HIKCLOUD] config load failed for tenant %s: %v", tenantID, BackendQueryError("load config", err))
		}
		return nil, false
	}

	cfg := &Config{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Endpoint:  strings.TrimRight(row.APIURL, "/"),
		ClientID:  row.AppKey,
		ExpiresAt: row.TokenExpiresAt,
	}

	fields := []struct {
		name string
		raw  string
		dst  *string
	}{
		{"app_secret", row.AppSecret, &cfg.ClientSecret},
		{"access_token", row.AccessToken, &cfg.AccessToken},
		{"refresh_token", row.RefreshToken, &cfg.RefreshToken},
	}
	for _, f := range fields {
		v, err := s.open(row, f.name, f.raw)
		if err != nil {
			log.Printf("[HIKCLOUD] cannot open %s of config %s: %v", f.name, row.ID, err)
			return nil, false
		}
		*f.dst = v
	}

	return cfg, true
}

// SaveTokens persists the token triple of cfg.
func (s *CredentialStore) SaveTokens(ctx context.Context, cfg *Config) error {
	if cfg == nil || cfg.ExpiresAt == nil {
		return errors.New("config has no token expiry")
	}

	access, err := s.seal(cfg.TenantID, cfg.ID, "access_token", cfg.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := s.seal(cfg.TenantID, cfg.ID, "refresh_token", cfg.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	if err := s.repo.UpdateTokens(ctx, cfg.ID, cfg.TenantID, access, refresh, *cfg.ExpiresAt); err != nil {
		return BackendQueryError("save tokens", err)
	}
	return nil
}

// SealAtRest rewrites the tenant's active row so every secret column is sealed.
func (s *CredentialStore) SealAtRest(ctx context.Context, tenantID uuid.UUID) error {
	if s.sealer == nil {
		return errors.New("no keyring configured")
	}
	cfg, ok := s.Load(ctx, tenantID)
	if !ok {
		return ErrNotConfigured
	}

	secret, err := s.seal(cfg.TenantID, cfg.ID, "app_secret", cfg.ClientSecret)
	if err != nil {
		return err
	}
	access, err := s.seal(cfg.TenantID, cfg.ID, "access_token", cfg.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.seal(cfg.TenantID, cfg.ID, "refresh_token", cfg.RefreshToken)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateSecrets(ctx, cfg.ID, cfg.TenantID, secret, access, refresh); err != nil {
		return BackendQueryError("seal secrets", err)
	}
	return nil
}
