package integration_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/integration"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }

func validConfig(tenantID uuid.UUID) *hikcloud.Config {
	return &hikcloud.Config{
		ID: uuid.New(), TenantID: tenantID, Endpoint: "https://open.hik.example",
		ClientID: "app-key", ClientSecret: "app-secret-1234",
		AccessToken: "at", RefreshToken: "rt", ExpiresAt: timePtr(fixedNow.Add(time.Hour)),
	}
}

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
	mu        sync.Mutex
	cfg       *hikcloud.Config
	RefreshTo *hikcloud.Config
	Refreshes int
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

func (m *MockTokens) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes++
	if m.RefreshTo == nil {
		return false
	}
	m.cfg = m.RefreshTo.Clone()
	return true
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) List(ctx context.Context, tenantID, projectID uuid.UUID) []cameras.Camera {
	args := m.Called(ctx, tenantID, projectID)
	return args.Get(0).([]cameras.Camera)
}

func (m *MockDirectory) UpdateStatus(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, status cameras.Status) bool {
	return m.Called(ctx, tenantID, projectID, cameraID, status).Bool(0)
}

func (m *MockDirectory) UpdateSettings(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, patch cameras.Patch) bool {
	return m.Called(ctx, tenantID, projectID, cameraID, patch).Bool(0)
}

func (m *MockDirectory) Add(ctx context.Context, tenantID, projectID uuid.UUID, in cameras.Input) *cameras.Camera {
	args := m.Called(ctx, tenantID, projectID, in)
	if c := args.Get(0); c != nil {
		return c.(*cameras.Camera)
	}
	return nil
}

func (m *MockDirectory) Delete(ctx context.Context, tenantID, projectID, cameraID uuid.UUID) bool {
	return m.Called(ctx, tenantID, projectID, cameraID).Bool(0)
}

type MockMonitor struct {
	mock.Mock
}

func (m *MockMonitor) Check(ctx context.Context, tenantID, projectID uuid.UUID) integration.IntegrationStatus {
	return m.Called(ctx, tenantID, projectID).Get(0).(integration.IntegrationStatus)
}

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context, tenantID, projectID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, projectID)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []*events.CameraStatusChanged
	Err    error
}

func (m *MockPublisher) PublishStatus(ctx context.Context, evt *events.CameraStatusChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
	return m.Err
}

type MockSyncLookup struct {
	Last *time.Time
	Err  error
}

func (m *MockSyncLookup) LatestSync(ctx context.Context, tenantID, projectID uuid.UUID) (*time.Time, error) {
	return m.Last, m.Err
}
