package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"
)

const DefaultAccessTTL = 15 * time.Minute

type Claims struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"sub"`
	TokenType TokenType `json:"token_type"`
	// Projects limits the caller to these project ids. Empty means every project of the tenant.
	Projects []string `json:"projects,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
}

func NewManager(signingKey string) *Manager {
	return &Manager{signingKey: []byte(signingKey), issuer: "secops", accessTTL: DefaultAccessTTL}
}

// WithAccessTTL overrides the access-token lifetime.
func (m *Manager) WithAccessTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.accessTTL = ttl
	}
	return m
}

func (m *Manager) GenerateAccessToken(userID, tenantID string, projects []string) (string, error) {
	return m.generateToken(userID, tenantID, projects, Access, m.accessTTL)
}

func (m *Manager) generateToken(userID, tenantID string, projects []string, tokenType TokenType, duration time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TenantID:  tenantID,
		UserID:    userID,
		TokenType: tokenType,
		Projects:  projects,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = "v1"

	return token.SignedString(m.signingKey)
}

func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// RemainingTTL is how long the token stays valid, used as the blacklist ttl on logout.
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
