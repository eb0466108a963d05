package cameras

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/metrics"
)

const DevicesPath = "/api/v1/devices"

// DeviceAPI is the subset of hikcloud.Gateway the syncer needs.
type DeviceAPI interface {
	Request(ctx context.Context, path string, opts hikcloud.RequestOptions) (json.RawMessage, error)
}

type SyncRepository interface {
	UpsertSynced(ctx context.Context, c *data.CloudCamera) error
}

// Syncer pulls the tenant's remote device list into hikvision_cloud_cameras for one project.
// Each project owns its own row per device channel.
type Syncer struct {
	api  DeviceAPI
	repo SyncRepository
	now  func() time.Time
}

func NewSyncer(api DeviceAPI, repo SyncRepository, now func() time.Time) *Syncer {
	if now == nil {
		now = time.Now
	}
	return &Syncer{api: api, repo: repo, now: now}
}

type deviceList struct {
	Devices []RemoteDevice `json:"devices"`
}

// Sync upserts every listed device channel and returns how many rows were written.
// Rows already written stay when a later upsert fails.
func (s *Syncer) Sync(ctx context.Context, tenantID, projectID uuid.UUID) (int, error) {
	n, err := s.sync(ctx, tenantID, projectID)
	metrics.CameraSyncTotal.WithLabelValues(metrics.Result(err == nil)).Inc()
	return n, err
}

func (s *Syncer) sync(ctx context.Context, tenantID, projectID uuid.UUID) (int, error) {
	raw, err := s.api.Request(ctx, DevicesPath, hikcloud.RequestOptions{})
	if err != nil {
		return 0, err
	}

	var list deviceList
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, &hikcloud.IntegrationError{Kind: hikcloud.KindRemoteAPI, Message: "unexpected device list shape", Err: err}
	}

	now := s.now()
	written := 0
	for _, d := range list.Devices {
		if d.DeviceID == "" {
			log.Printf("[SYNC] skipping device without id in project %s", projectID)
			continue
		}
		rec := FromRemoteDevice(projectID, tenantID, d, now)
		if err := s.repo.UpsertSynced(ctx, rec); err != nil {
			return written, hikcloud.BackendQueryError("upsert synced camera", err)
		}
		written++
	}

	log.Printf("[SYNC] project %s: %d of %d devices written", projectID, written, len(list.Devices))
	return written, nil
}
