package cameras

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/metrics"
)

type Repository interface {
	List(ctx context.Context, tenantID, projectID uuid.UUID) ([]*data.CloudCamera, error)
	Insert(ctx context.Context, c *data.CloudCamera) error
	SetStatus(ctx context.Context, id, tenantID, projectID uuid.UUID, status string, updatedAt time.Time) error
	Update(ctx context.Context, id, tenantID, projectID uuid.UUID, p data.CloudCameraPatch, updatedAt time.Time) error
	Delete(ctx context.Context, id, tenantID, projectID uuid.UUID) error
}

type Auditor interface {
	WriteEvent(ctx context.Context, evt audit.AuditEvent) error
}

// Directory is CRUD over cloud-camera rows. Every call is scoped by tenant and project;
// a camera of another project counts as not found. It never returns errors: failures are
// logged and reported as an empty list, false, or nil.
type Directory struct {
	repo    Repository
	tenants TenantResolver
	auditor Auditor
	now     func() time.Time
}

func NewDirectory(repo Repository, tenants TenantResolver, aud Auditor) *Directory {
	if tenants == nil {
		tenants = SessionTenantResolver{}
	}
	return &Directory{repo: repo, tenants: tenants, auditor: aud, now: time.Now}
}

// WithClock replaces the time source used for updated_at and synthesized device ids.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	d.now = now
	return d
}

func (d *Directory) List(ctx context.Context, tenantID, projectID uuid.UUID) []Camera {
	rows, err := d.repo.List(ctx, tenantID, projectID)
	d.count("list", err == nil)
	if err != nil {
		log.Printf("[DIRECTORY] list project %s: %v", projectID, hikcloud.BackendQueryError("list cameras", err))
		return []Camera{}
	}

	out := make([]Camera, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToPublic(r))
	}
	return out
}

func (d *Directory) UpdateStatus(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, status Status) bool {
	if !status.Valid() {
		log.Printf("[DIRECTORY] rejected status %q for camera %s", status, cameraID)
		d.count("update_status", false)
		return false
	}

	err := d.repo.SetStatus(ctx, cameraID, tenantID, projectID, string(status), d.now())
	d.count("update_status", err == nil)
	if err != nil {
		log.Printf("[DIRECTORY] update status of camera %s: %v", cameraID, hikcloud.BackendQueryError("update status", err))
		return false
	}

	d.record(ctx, tenantID, "camera.status", cameraID, map[string]any{"status": status})
	return true
}

func (d *Directory) UpdateSettings(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, patch Patch) bool {
	if err := patch.Validate(); err != nil {
		log.Printf("[DIRECTORY] rejected settings for camera %s: %v", cameraID, err)
		d.count("update_settings", false)
		return false
	}

	err := d.repo.Update(ctx, cameraID, tenantID, projectID, ToStoredUpdate(patch), d.now())
	d.count("update_settings", err == nil)
	if err != nil {
		log.Printf("[DIRECTORY] update settings of camera %s: %v", cameraID, hikcloud.BackendQueryError("update settings", err))
		return false
	}

	d.record(ctx, tenantID, "camera.update", cameraID, nil)
	return true
}

// Add inserts a manually added camera and returns it in public shape.
func (d *Directory) Add(ctx context.Context, sessionTenant, projectID uuid.UUID, in Input) *Camera {
	if err := in.Validate(); err != nil {
		log.Printf("[DIRECTORY] rejected camera for project %s: %v", projectID, err)
		d.count("add", false)
		return nil
	}

	tenantID, err := d.tenants.ResolveTenant(ctx, sessionTenant)
	if err != nil {
		log.Printf("[DIRECTORY] add camera to project %s: %v", projectID, err)
		d.count("add", false)
		return nil
	}

	rec := ToStoredInsert(projectID, tenantID, in, d.now())
	err = d.repo.Insert(ctx, rec)
	d.count("add", err == nil)
	if err != nil {
		log.Printf("[DIRECTORY] add camera to project %s: %v", projectID, hikcloud.BackendQueryError("insert camera", err))
		return nil
	}

	cam := ToPublic(rec)
	d.record(ctx, tenantID, "camera.create", cam.ID, map[string]any{"name": cam.Name, "project_id": projectID})
	return &cam
}

func (d *Directory) Delete(ctx context.Context, tenantID, projectID, cameraID uuid.UUID) bool {
	err := d.repo.Delete(ctx, cameraID, tenantID, projectID)
	d.count("delete", err == nil)
	if err != nil {
		log.Printf("[DIRECTORY] delete camera %s: %v", cameraID, hikcloud.BackendQueryError("delete camera", err))
		return false
	}

	d.record(ctx, tenantID, "camera.delete", cameraID, nil)
	return true
}

func (d *Directory) count(op string, ok bool) {
	metrics.DirectoryOpsTotal.WithLabelValues(op, metrics.Result(ok)).Inc()
}

func (d *Directory) record(ctx context.Context, tenantID uuid.UUID, action string, cameraID uuid.UUID, meta map[string]any) {
	if d.auditor == nil {
		return
	}
	evt := audit.AuditEvent{
		EventID:     uuid.New(),
		TenantID:    tenantID,
		ActorUserID: audit.ActorFromContext(ctx),
		Action:      action,
		Result:      "success",
		TargetID:    cameraID.String(),
		TargetType:  "camera",
		Metadata:    toMeta(meta),
		CreatedAt:   d.now(),
	}
	if err := d.auditor.WriteEvent(ctx, evt); err != nil {
		log.Printf("[DIRECTORY] audit %s for camera %s: %v", action, cameraID, err)
	}
}

func toMeta(m map[string]any) json.RawMessage {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}
