package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CloudCamera is one row of hikvision_cloud_cameras.
type CloudCamera struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ProjectID    uuid.UUID
	DeviceID     string
	DeviceSerial string
	ChannelNo    int
	CameraName   string
	CameraModel  *string
	Status       string
	Location     *string
	RTSPURL      *string
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CloudCameraPatch carries only the columns a caller wants to change.
type CloudCameraPatch struct {
	CameraName  *string
	CameraModel *string
	Location    *string
	Status      *string
	RTSPURL     *string
}

func (p CloudCameraPatch) IsEmpty() bool {
	return p.CameraName == nil && p.CameraModel == nil && p.Location == nil && p.Status == nil && p.RTSPURL == nil
}

const cloudCameraColumns = `id, tenant_id, project_id, device_id, device_serial, channel_no,
		       camera_name, camera_model, status, location, rtsp_url, last_sync_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCloudCamera(row rowScanner) (*CloudCamera, error) {
	var c CloudCamera
	var model, location, rtsp sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(
		&c.ID, &c.TenantID, &c.ProjectID, &c.DeviceID, &c.DeviceSerial, &c.ChannelNo,
		&c.CameraName, &model, &c.Status, &location, &rtsp, &lastSync, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CameraModel = stringPtr(model)
	c.Location = stringPtr(location)
	c.RTSPURL = stringPtr(rtsp)
	if lastSync.Valid {
		t := lastSync.Time
		c.LastSyncAt = &t
	}
	return &c, nil
}

type CloudCameraModel struct {
	DB DBTX
}

// List returns the project's cameras, newest first.
func (m CloudCameraModel) List(ctx context.Context, tenantID, projectID uuid.UUID) ([]*CloudCamera, error) {
	query := `
		SELECT ` + cloudCameraColumns + `
		FROM hikvision_cloud_cameras
		WHERE tenant_id = $1 AND project_id = $2
		ORDER BY created_at DESC`

	rows, err := m.DB.QueryContext(ctx, query, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CloudCamera
	for rows.Next() {
		c, err := scanCloudCamera(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Insert writes a new row and reads the stored row back into c.
func (m CloudCameraModel) Insert(ctx context.Context, c *CloudCamera) error {
	query := `
		INSERT INTO hikvision_cloud_cameras (
			tenant_id, project_id, device_id, device_serial, channel_no,
			camera_name, camera_model, status, location, rtsp_url,
			last_sync_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + cloudCameraColumns

	stored, err := scanCloudCamera(m.DB.QueryRowContext(ctx, query,
		c.TenantID, c.ProjectID, c.DeviceID, c.DeviceSerial, c.ChannelNo,
		c.CameraName, c.CameraModel, c.Status, c.Location, c.RTSPURL,
		c.LastSyncAt, c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

// SetStatus writes status and updated_at for one camera of the project.
func (m CloudCameraModel) SetStatus(ctx context.Context, id, tenantID, projectID uuid.UUID, status string, updatedAt time.Time) error {
	query := `
		UPDATE hikvision_cloud_cameras SET status = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND project_id = $5`
	res, err := m.DB.ExecContext(ctx, query, status, updatedAt, id, tenantID, projectID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Update applies a sparse patch. Columns not present in p are left as stored.
func (m CloudCameraModel) Update(ctx context.Context, id, tenantID, projectID uuid.UUID, p CloudCameraPatch, updatedAt time.Time) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.CameraName != nil {
		set("camera_name", *p.CameraName)
	}
	if p.CameraModel != nil {
		set("camera_model", emptyToNull(*p.CameraModel))
	}
	if p.Location != nil {
		set("location", emptyToNull(*p.Location))
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	if p.RTSPURL != nil {
		set("rtsp_url", emptyToNull(*p.RTSPURL))
	}
	set("updated_at", updatedAt)

	args = append(args, id, tenantID, projectID)
	n := len(args)
	query := fmt.Sprintf(`UPDATE hikvision_cloud_cameras SET %s WHERE id = $%d AND tenant_id = $%d AND project_id = $%d`,
		strings.Join(sets, ", "), n-2, n-1, n)

	res, err := m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m CloudCameraModel) Delete(ctx context.Context, id, tenantID, projectID uuid.UUID) error {
	query := `DELETE FROM hikvision_cloud_cameras WHERE id = $1 AND tenant_id = $2 AND project_id = $3`
	res, err := m.DB.ExecContext(ctx, query, id, tenantID, projectID)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// LatestSync returns the most recent last_sync_at of the project, or nil when no row carries one.
func (m CloudCameraModel) LatestSync(ctx context.Context, tenantID, projectID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT last_sync_at
		FROM hikvision_cloud_cameras
		WHERE tenant_id = $1 AND project_id = $2
		ORDER BY last_sync_at DESC NULLS LAST
		LIMIT 1`

	var ts sql.NullTime
	err := m.DB.QueryRowContext(ctx, query, tenantID, projectID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}

// UpsertSynced inserts or refreshes a camera pulled from the device API. Rows are keyed by
// project, so syncing one project never touches another project's copy of a device.
// A camera an operator put into maintenance keeps that status across syncs.
func (m CloudCameraModel) UpsertSynced(ctx context.Context, c *CloudCamera) error {
	query := `
		INSERT INTO hikvision_cloud_cameras (
			tenant_id, project_id, device_id, device_serial, channel_no,
			camera_name, camera_model, status, location, rtsp_url,
			last_sync_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, project_id, device_id, channel_no) DO UPDATE SET
			device_serial = EXCLUDED.device_serial,
			camera_name = EXCLUDED.camera_name,
			camera_model = COALESCE(EXCLUDED.camera_model, hikvision_cloud_cameras.camera_model),
			status = CASE WHEN hikvision_cloud_cameras.status = 'maintenance'
			              THEN hikvision_cloud_cameras.status ELSE EXCLUDED.status END,
			rtsp_url = COALESCE(EXCLUDED.rtsp_url, hikvision_cloud_cameras.rtsp_url),
			last_sync_at = EXCLUDED.last_sync_at,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + cloudCameraColumns

	stored, err := scanCloudCamera(m.DB.QueryRowContext(ctx, query,
		c.TenantID, c.ProjectID, c.DeviceID, c.DeviceSerial, c.ChannelNo,
		c.CameraName, c.CameraModel, c.Status, c.Location, c.RTSPURL,
		c.LastSyncAt, c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}
