package api_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/secops/internal/api"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/integration"
	"github.com/technosupport/secops/internal/middleware"
	"github.com/technosupport/secops/internal/tokens"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type MockStore struct {
	Cfg *hikcloud.Config
}

func (m *MockStore) Load(ctx context.Context, tenantID uuid.UUID) (*hikcloud.Config, bool) {
	if m.Cfg == nil {
		return nil, false
	}
	return m.Cfg.Clone(), true
}

type MockTokens struct {
	mu  sync.Mutex
	cfg *hikcloud.Config
}

func (m *MockTokens) SetConfig(cfg *hikcloud.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
}

func (m *MockTokens) Config() (*hikcloud.Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, false
	}
	return m.cfg.Clone(), true
}

func (m *MockTokens) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg != nil && m.cfg.AccessToken != "" && m.cfg.ExpiresAt != nil && m.cfg.ExpiresAt.After(fixedNow)
}

func (m *MockTokens) Refresh(ctx context.Context) bool { return false }

// MemDirectory is an in-memory camera directory. Fail makes every write report failure.
type MemDirectory struct {
	mu      sync.Mutex
	cameras map[uuid.UUID]cameras.Camera
	Fail    bool
}

func NewMemDirectory(seed ...cameras.Camera) *MemDirectory {
	d := &MemDirectory{cameras: map[uuid.UUID]cameras.Camera{}}
	for _, c := range seed {
		d.cameras[c.ID] = c
	}
	return d
}

func (d *MemDirectory) List(ctx context.Context, tenantID, projectID uuid.UUID) []cameras.Camera {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []cameras.Camera{}
	for _, c := range d.cameras {
		if c.TenantID == tenantID && c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out
}

func (d *MemDirectory) UpdateStatus(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, status cameras.Status) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cameras[cameraID]
	if d.Fail || !ok || c.TenantID != tenantID || c.ProjectID != projectID {
		return false
	}
	c.Status = status
	d.cameras[cameraID] = c
	return true
}

func (d *MemDirectory) UpdateSettings(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, patch cameras.Patch) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cameras[cameraID]
	if d.Fail || !ok || c.TenantID != tenantID || c.ProjectID != projectID {
		return false
	}
	d.cameras[cameraID] = cameras.ApplyPatch(c, patch, fixedNow)
	return true
}

func (d *MemDirectory) Add(ctx context.Context, tenantID, projectID uuid.UUID, in cameras.Input) *cameras.Camera {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail {
		return nil
	}
	c := cameras.Camera{
		ID: uuid.New(), Name: in.Name, Model: in.Model, Status: in.Status, Location: in.Location,
		RTSPURL: in.RTSPURL, ProjectID: projectID, TenantID: tenantID, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	if c.Model == "" {
		c.Model = cameras.UnknownModel
	}
	d.cameras[c.ID] = c
	return &c
}

func (d *MemDirectory) Delete(ctx context.Context, tenantID, projectID, cameraID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cameras[cameraID]
	if d.Fail || !ok || c.TenantID != tenantID || c.ProjectID != projectID {
		return false
	}
	delete(d.cameras, cameraID)
	return true
}

type StubMonitor struct {
	Status integration.IntegrationStatus
}

func (m StubMonitor) Check(ctx context.Context, tenantID, projectID uuid.UUID) integration.IntegrationStatus {
	return m.Status
}

type StubSyncer struct {
	N   int
	Err error
}

func (s StubSyncer) Sync(ctx context.Context, tenantID, projectID uuid.UUID) (int, error) {
	return s.N, s.Err
}

type StubValidator struct {
	Claims map[string]*tokens.Claims
}

func (v StubValidator) ValidateToken(token string) (*tokens.Claims, error) {
	if c, ok := v.Claims[token]; ok {
		return c, nil
	}
	return nil, tokens.ErrInvalidToken
}

type MemBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	Err     error
}

func (b *MemBlacklist) IsBlacklisted(ctx context.Context, tenantID, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[tenantID+":"+jti]
	return ok, nil
}

func (b *MemBlacklist) AddToBlacklist(ctx context.Context, tenantID, jti string, ttl time.Duration) error {
	if b.Err != nil {
		return b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked == nil {
		b.revoked = map[string]time.Duration{}
	}
	b.revoked[tenantID+":"+jti] = ttl
	return nil
}

type StubEvents struct {
	Events []audit.AuditEvent
	Err    error
	Got    audit.Filter
}

func (s *StubEvents) QueryEvents(ctx context.Context, f audit.Filter) ([]audit.AuditEvent, error) {
	s.Got = f
	return s.Events, s.Err
}

// env wires a router around real facades built from in-memory parts.
type env struct {
	tenantID  uuid.UUID
	userID    uuid.UUID
	projectID uuid.UUID
	token     string
	projects  []string

	store     *MockStore
	dir       *MemDirectory
	monitor   StubMonitor
	syncer    StubSyncer
	blacklist *MemBlacklist
	events    *StubEvents
	registry  *integration.Registry
	router    http.Handler
}

var errSyncRemote = &hikcloud.IntegrationError{Kind: hikcloud.KindRemoteAPI, StatusCode: 403, Message: "forbidden"}

func connected() integration.IntegrationStatus {
	return integration.IntegrationStatus{Status: integration.StatusConnected, Message: integration.MsgConnected}
}

func newEnv(t *testing.T, opts ...func(e *env)) *env {
	t.Helper()
	e := &env{
		tenantID:  uuid.New(),
		userID:    uuid.New(),
		projectID: uuid.New(),
		token:     "good-token",
		dir:       NewMemDirectory(),
		monitor:   StubMonitor{Status: connected()},
		blacklist: &MemBlacklist{},
		events:    &StubEvents{},
	}
	exp := fixedNow.Add(time.Hour)
	e.store = &MockStore{Cfg: &hikcloud.Config{
		ID: uuid.New(), TenantID: e.tenantID, Endpoint: "https://open.hik.example",
		ClientID: "app-key", ClientSecret: "app-secret-1234",
		AccessToken: "at", RefreshToken: "rt", ExpiresAt: &exp,
	}}
	for _, o := range opts {
		o(e)
	}

	reg, err := integration.NewRegistry(8, func(ctx context.Context, tenantID, userID uuid.UUID) *integration.Facade {
		return integration.NewFacade(ctx, integration.FacadeDeps{
			TenantID: tenantID, UserID: userID,
			Store: e.store, Tokens: &MockTokens{},
			Directory: e.dir, Monitor: e.monitor, Syncer: e.syncer,
			Now: clock,
		})
	})
	require.NoError(t, err)
	e.registry = reg

	claims := &tokens.Claims{TenantID: e.tenantID.String(), UserID: e.userID.String(), TokenType: tokens.Access, Projects: e.projects}
	claims.ID = "jti-1"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(10 * time.Minute))
	validator := StubValidator{Claims: map[string]*tokens.Claims{e.token: claims}}

	e.router = api.NewRouter(api.RouterDeps{
		Sessions:    reg,
		Auth:        middleware.NewJWTAuth(validator, e.blacklist),
		Logout:      &api.AuthHandler{Tokens: validator, Blacklist: e.blacklist, Sessions: reg},
		AuditEvents: &api.AuditHandler{Service: e.events},
		Health:      &api.HealthHandler{Checks: map[string]api.Check{"db": func(context.Context) error { return nil }}},
	})
	return e
}
