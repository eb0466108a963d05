package cameras_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/hikcloud"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }

type MockRepo struct {
	ListFunc      func(ctx context.Context, tenantID, projectID uuid.UUID) ([]*data.CloudCamera, error)
	InsertFunc    func(ctx context.Context, c *data.CloudCamera) error
	SetStatusFunc func(ctx context.Context, id, tenantID, projectID uuid.UUID, status string, updatedAt time.Time) error
	UpdateFunc    func(ctx context.Context, id, tenantID, projectID uuid.UUID, p data.CloudCameraPatch, updatedAt time.Time) error
	DeleteFunc    func(ctx context.Context, id, tenantID, projectID uuid.UUID) error
	Calls         map[string]int
}

func (m *MockRepo) hit(name string) {
	if m.Calls == nil {
		m.Calls = map[string]int{}
	}
	m.Calls[name]++
}

func (m *MockRepo) List(ctx context.Context, tenantID, projectID uuid.UUID) ([]*data.CloudCamera, error) {
	m.hit("List")
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tenantID, projectID)
	}
	return nil, nil
}

func (m *MockRepo) Insert(ctx context.Context, c *data.CloudCamera) error {
	m.hit("Insert")
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, c)
	}
	c.ID = uuid.New()
	return nil
}

func (m *MockRepo) SetStatus(ctx context.Context, id, tenantID, projectID uuid.UUID, status string, updatedAt time.Time) error {
	m.hit("SetStatus")
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, tenantID, projectID, status, updatedAt)
	}
	return nil
}

func (m *MockRepo) Update(ctx context.Context, id, tenantID, projectID uuid.UUID, p data.CloudCameraPatch, updatedAt time.Time) error {
	m.hit("Update")
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, tenantID, projectID, p, updatedAt)
	}
	return nil
}

func (m *MockRepo) Delete(ctx context.Context, id, tenantID, projectID uuid.UUID) error {
	m.hit("Delete")
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, tenantID, projectID)
	}
	return nil
}

// MemRepo keeps rows in memory and applies the same tenant and project predicates and the
// (tenant, project, device, channel) uniqueness as hikvision_cloud_cameras.
type MemRepo struct {
	mu   sync.Mutex
	rows []*data.CloudCamera
}

var errDuplicateDevice = errors.New("duplicate key value violates unique constraint \"uq_cloud_camera_device\"")

func (m *MemRepo) find(id, tenantID, projectID uuid.UUID) *data.CloudCamera {
	for _, r := range m.rows {
		if r.ID == id && r.TenantID == tenantID && r.ProjectID == projectID {
			return r
		}
	}
	return nil
}

func (m *MemRepo) List(ctx context.Context, tenantID, projectID uuid.UUID) ([]*data.CloudCamera, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.CloudCamera
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.TenantID == tenantID && r.ProjectID == projectID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemRepo) Insert(ctx context.Context, c *data.CloudCamera) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TenantID == c.TenantID && r.ProjectID == c.ProjectID && r.DeviceID == c.DeviceID && r.ChannelNo == c.ChannelNo {
			return errDuplicateDevice
		}
	}
	c.ID = uuid.New()
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *MemRepo) SetStatus(ctx context.Context, id, tenantID, projectID uuid.UUID, status string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id, tenantID, projectID)
	if r == nil {
		return data.ErrRecordNotFound
	}
	r.Status, r.UpdatedAt = status, updatedAt
	return nil
}

func (m *MemRepo) Update(ctx context.Context, id, tenantID, projectID uuid.UUID, p data.CloudCameraPatch, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id, tenantID, projectID)
	if r == nil {
		return data.ErrRecordNotFound
	}
	if p.CameraName != nil {
		r.CameraName = *p.CameraName
	}
	if p.CameraModel != nil {
		r.CameraModel = p.CameraModel
	}
	if p.Location != nil {
		r.Location = p.Location
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.RTSPURL != nil {
		r.RTSPURL = p.RTSPURL
	}
	r.UpdatedAt = updatedAt
	return nil
}

func (m *MemRepo) Delete(ctx context.Context, id, tenantID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id && r.TenantID == tenantID && r.ProjectID == projectID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return data.ErrRecordNotFound
}

func (m *MemRepo) UpsertSynced(ctx context.Context, c *data.CloudCamera) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TenantID == c.TenantID && r.ProjectID == c.ProjectID && r.DeviceID == c.DeviceID && r.ChannelNo == c.ChannelNo {
			r.CameraName, r.Status, r.LastSyncAt, r.UpdatedAt = c.CameraName, c.Status, c.LastSyncAt, c.UpdatedAt
			*c = *r
			return nil
		}
	}
	c.ID = uuid.New()
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

type MockAuditor struct {
	Events []audit.AuditEvent
}

func (m *MockAuditor) WriteEvent(ctx context.Context, evt audit.AuditEvent) error {
	m.Events = append(m.Events, evt)
	return nil
}

type MockTenants struct {
	Tenant *data.Tenant
	Err    error
}

func (m *MockTenants) First(ctx context.Context) (*data.Tenant, error) {
	return m.Tenant, m.Err
}

type MockDeviceAPI struct {
	RequestFunc func(ctx context.Context, path string, opts hikcloud.RequestOptions) (json.RawMessage, error)
	Paths       []string
}

func (m *MockDeviceAPI) Request(ctx context.Context, path string, opts hikcloud.RequestOptions) (json.RawMessage, error) {
	m.Paths = append(m.Paths, path)
	return m.RequestFunc(ctx, path, opts)
}

type MockUpserter struct {
	Rows []*data.CloudCamera
	Err  error
	// FailAfter makes the upsert fail once this many rows were written; 0 disables it.
	FailAfter int
}

func (m *MockUpserter) UpsertSynced(ctx context.Context, c *data.CloudCamera) error {
	if m.Err != nil && len(m.Rows) >= m.FailAfter {
		return m.Err
	}
	m.Rows = append(m.Rows, c)
	return nil
}
