package hikcloud

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/technosupport/secops/internal/metrics"
)

const (
	DefaultTimeout = 15 * time.Second
	tokenPath      = "/oauth/token"
)

// TokenPersister stores refreshed tokens. CredentialStore implements it.
type TokenPersister interface {
	SaveTokens(ctx context.Context, cfg *Config) error
}

type TokenManagerConfig struct {
	HTTPClient *http.Client
	Persister  TokenPersister
	Now        func() time.Time
}

// TokenManager owns the mutable token state of one integration config.
// It satisfies oauth2.TokenSource so the Gateway transport can read the bearer token.
type TokenManager struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex
	cfg       *Config

	client  *resty.Client
	persist TokenPersister
	now     func() time.Time
}

var _ oauth2.TokenSource = (*TokenManager)(nil)

func NewTokenManager(c TokenManagerConfig) *TokenManager {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		client:  resty.NewWithClient(hc),
		persist: c.Persister,
		now:     now,
	}
}

// SetConfig replaces the held config. A nil config puts the manager in the not-configured state.
func (m *TokenManager) SetConfig(cfg *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
}

// Config returns a copy of the held config.
func (m *TokenManager) Config() (*Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, false
	}
	return m.cfg.Clone(), true
}

// IsValid reports whether the token expiry is present and strictly in the future.
func (m *TokenManager) IsValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg != nil && m.cfg.ExpiresAt != nil && m.cfg.ExpiresAt.After(m.now())
}

func (m *TokenManager) HasAccessToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg != nil && m.cfg.AccessToken != ""
}

// Token implements oauth2.TokenSource. It never refreshes; the Gateway decides when to.
func (m *TokenManager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil || m.cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	tok := &oauth2.Token{
		AccessToken:  m.cfg.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: m.cfg.RefreshToken,
	}
	if m.cfg.ExpiresAt != nil {
		tok.Expiry = *m.cfg.ExpiresAt
	}
	return tok, nil
}

type refreshRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges the refresh token for a new token pair. It makes one attempt.
// On any failure the held config is left untouched.
func (m *TokenManager) Refresh(ctx context.Context) bool {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	ok := m.refresh(ctx)
	metrics.TokenRefreshTotal.WithLabelValues(metrics.Result(ok)).Inc()
	return ok
}

func (m *TokenManager) refresh(ctx context.Context) bool {
	cfg, ok := m.Config()
	if !ok {
		log.Printf("[HIKCLOUD] token refresh skipped: no config loaded")
		return false
	}
	if cfg.RefreshToken == "" {
		log.Printf("[HIKCLOUD] token refresh skipped: config %s has no refresh token", cfg.ID)
		return false
	}

	var out refreshResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(refreshRequest{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			GrantType:    "refresh_token",
			RefreshToken: cfg.RefreshToken,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post(cfg.Endpoint + tokenPath)
	if err != nil {
		log.Printf("[HIKCLOUD] token refresh failed for config %s: %v", cfg.ID, err)
		return false
	}
	if !resp.IsSuccess() {
		log.Printf("[HIKCLOUD] token refresh rejected for config %s: %s", cfg.ID, resp.Status())
		return false
	}
	if out.AccessToken == "" {
		log.Printf("[HIKCLOUD] token refresh for config %s returned no access token", cfg.ID)
		return false
	}

	expiresAt := m.now().Add(time.Duration(out.ExpiresIn) * time.Second)

	m.mu.Lock()
	if m.cfg == nil || m.cfg.ID != cfg.ID {
		// replaced while the exchange was in flight
		m.mu.Unlock()
		return false
	}
	m.cfg.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		m.cfg.RefreshToken = out.RefreshToken
	}
	m.cfg.ExpiresAt = &expiresAt
	updated := m.cfg.Clone()
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.SaveTokens(ctx, updated); err != nil {
			log.Printf("[HIKCLOUD] refreshed tokens for config %s not persisted: %v", cfg.ID, err)
		}
	}
	return true
}
