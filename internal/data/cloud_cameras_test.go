package data_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/secops/internal/data"
)

var cameraCols = []string{
	"id", "tenant_id", "project_id", "device_id", "device_serial", "channel_no",
	"camera_name", "camera_model", "status", "location", "rtsp_url", "last_sync_at", "created_at", "updated_at",
}

func TestCloudCameraList_NewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenantID, projectID := uuid.New(), uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(cameraCols).
		AddRow(uuid.NewString(), tenantID.String(), projectID.String(), "D2", "S2", 1, "Gate", "DS-2CD", "online", "North", "rtsp://a", now, now, now).
		AddRow(uuid.NewString(), tenantID.String(), projectID.String(), "D1", "S1", 1, "Lobby", nil, "offline", nil, nil, nil, now.Add(-time.Hour), now)

	mock.ExpectQuery(`FROM hikvision_cloud_cameras WHERE tenant_id = \$1 AND project_id = \$2 ORDER BY created_at DESC`).
		WithArgs(tenantID, projectID).
		WillReturnRows(rows)

	m := data.CloudCameraModel{DB: db}
	list, err := m.List(context.Background(), tenantID, projectID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Gate", list[0].CameraName)
	require.NotNil(t, list[0].CameraModel)
	assert.Equal(t, "DS-2CD", *list[0].CameraModel)
	assert.NotNil(t, list[0].LastSyncAt)

	assert.Nil(t, list[1].CameraModel)
	assert.Nil(t, list[1].Location)
	assert.Nil(t, list[1].RTSPURL)
	assert.Nil(t, list[1].LastSyncAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraUpdate_OnlyPresentColumns(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	id, tenantID, projectID := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	loc := "Gate 4"

	mock.ExpectExec(`UPDATE hikvision_cloud_cameras SET location = \$1, updated_at = \$2 WHERE id = \$3 AND tenant_id = \$4 AND project_id = \$5`).
		WithArgs("Gate 4", at, id, tenantID, projectID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := data.CloudCameraModel{DB: db}
	err := m.Update(context.Background(), id, tenantID, projectID, data.CloudCameraPatch{Location: &loc}, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraUpdate_AllColumns(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	id, tenantID, projectID := uuid.New(), uuid.New(), uuid.New()
	at := time.Now()
	name, model, status, rtsp := "Dock", "DS-2DE", "maintenance", "rtsp://dock"

	mock.ExpectExec(`UPDATE hikvision_cloud_cameras SET camera_name = \$1, camera_model = \$2, status = \$3, rtsp_url = \$4, updated_at = \$5 WHERE id = \$6 AND tenant_id = \$7 AND project_id = \$8`).
		WithArgs(name, model, status, rtsp, at, id, tenantID, projectID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := data.CloudCameraModel{DB: db}
	p := data.CloudCameraPatch{CameraName: &name, CameraModel: &model, Status: &status, RTSPURL: &rtsp}
	require.NoError(t, m.Update(context.Background(), id, tenantID, projectID, p, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraSetStatus_OtherProjectIsNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	id, tenantID, projectID := uuid.New(), uuid.New(), uuid.New()
	at := time.Now()
	mock.ExpectExec(`UPDATE hikvision_cloud_cameras SET status = \$1, updated_at = \$2\s+WHERE id = \$3 AND tenant_id = \$4 AND project_id = \$5`).
		WithArgs("online", at, id, tenantID, projectID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	m := data.CloudCameraModel{DB: db}
	err := m.SetStatus(context.Background(), id, tenantID, projectID, "online", at)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraDelete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	id, tenantID, projectID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectExec(`DELETE FROM hikvision_cloud_cameras WHERE id = \$1 AND tenant_id = \$2 AND project_id = \$3`).
		WithArgs(id, tenantID, projectID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM hikvision_cloud_cameras`).
		WithArgs(id, tenantID, uuid.Nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	m := data.CloudCameraModel{DB: db}
	assert.NoError(t, m.Delete(context.Background(), id, tenantID, projectID))
	assert.ErrorIs(t, m.Delete(context.Background(), id, tenantID, uuid.Nil), data.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraUpsertSynced_KeyedByProject(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	tenantID, projectID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`ON CONFLICT \(tenant_id, project_id, device_id, channel_no\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows(cameraCols).
			AddRow(uuid.NewString(), tenantID.String(), projectID.String(), "D1", "SER1", 1, "Lobby", nil, "online", nil, nil, now, now, now))

	c := &data.CloudCamera{
		TenantID: tenantID, ProjectID: projectID, DeviceID: "D1", DeviceSerial: "SER1",
		ChannelNo: 1, CameraName: "Lobby", Status: "online", LastSyncAt: &now, CreatedAt: now, UpdatedAt: now,
	}
	m := data.CloudCameraModel{DB: db}
	require.NoError(t, m.UpsertSynced(context.Background(), c))
	assert.Equal(t, projectID, c.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloudCameraInsert_ReadsRowBack(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	tenantID, projectID := uuid.New(), uuid.New()
	newID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO hikvision_cloud_cameras").
		WillReturnRows(sqlmock.NewRows(cameraCols).
			AddRow(newID.String(), tenantID.String(), projectID.String(), "MANUAL_1", "MANUAL_1", 1, "Cam1", "X", "offline", "L", "rtsp://x", nil, now, now))

	c := &data.CloudCamera{
		TenantID: tenantID, ProjectID: projectID, DeviceID: "MANUAL_1", DeviceSerial: "MANUAL_1",
		ChannelNo: 1, CameraName: "Cam1", Status: "offline", CreatedAt: now, UpdatedAt: now,
	}
	m := data.CloudCameraModel{DB: db}
	require.NoError(t, m.Insert(context.Background(), c))
	assert.Equal(t, newID, c.ID)
	require.NotNil(t, c.Location)
	assert.Equal(t, "L", *c.Location)
}

func TestCloudCameraLatestSync(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	m := data.CloudCameraModel{DB: db}
	ctx := context.Background()

	synced := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("ORDER BY last_sync_at DESC NULLS LAST LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"last_sync_at"}).AddRow(synced))
	ts, err := m.LatestSync(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(synced))

	mock.ExpectQuery("ORDER BY last_sync_at DESC NULLS LAST LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"last_sync_at"}).AddRow(nil))
	ts, err = m.LatestSync(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, ts)

	mock.ExpectQuery("ORDER BY last_sync_at DESC NULLS LAST LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"last_sync_at"}))
	ts, err = m.LatestSync(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, ts)

	mock.ExpectQuery("ORDER BY last_sync_at").WillReturnError(sql.ErrConnDone)
	_, err = m.LatestSync(ctx, uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, sql.ErrConnDone))
}
