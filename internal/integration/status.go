package integration

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/metrics"
)

type StatusKind string

const (
	StatusConnected    StatusKind = "connected"
	StatusDisconnected StatusKind = "disconnected"
	StatusError        StatusKind = "error"
)

const (
	MsgNotConfigured = "Hikvision integration is not configured"
	MsgTokenInvalid  = "Token is invalid or expired"
	MsgConnected     = "Hikvision integration is connected"
	MsgUndetermined  = "Integration status could not be determined"
)

// IntegrationStatus is derived on every check and never stored.
type IntegrationStatus struct {
	Status   StatusKind `json:"status"`
	Message  string     `json:"message"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

type ConfigSource interface {
	Config() (*hikcloud.Config, bool)
}

type SyncLookup interface {
	LatestSync(ctx context.Context, tenantID, projectID uuid.UUID) (*time.Time, error)
}

type StatusMonitor struct {
	config ConfigSource
	syncs  SyncLookup
	now    func() time.Time
}

func NewStatusMonitor(config ConfigSource, syncs SyncLookup, now func() time.Time) *StatusMonitor {
	if now == nil {
		now = time.Now
	}
	return &StatusMonitor{config: config, syncs: syncs, now: now}
}

// Check never fails; lookup errors become StatusError.
func (m *StatusMonitor) Check(ctx context.Context, tenantID, projectID uuid.UUID) IntegrationStatus {
	st := m.check(ctx, tenantID, projectID)
	metrics.StatusChecksTotal.WithLabelValues(string(st.Status)).Inc()
	return st
}

func (m *StatusMonitor) check(ctx context.Context, tenantID, projectID uuid.UUID) IntegrationStatus {
	cfg, ok := m.config.Config()
	if !ok {
		return IntegrationStatus{Status: StatusDisconnected, Message: MsgNotConfigured}
	}

	now := m.now()
	if cfg.AccessToken == "" || cfg.ExpiresAt == nil || !cfg.ExpiresAt.After(now) {
		return IntegrationStatus{Status: StatusDisconnected, Message: MsgTokenInvalid}
	}

	last, err := m.syncs.LatestSync(ctx, tenantID, projectID)
	if err != nil {
		log.Printf("[STATUS] last sync lookup for project %s: %v", projectID, hikcloud.BackendQueryError("latest sync", err))
		return IntegrationStatus{Status: StatusError, Message: MsgUndetermined}
	}
	if last == nil {
		last = &now
	}
	return IntegrationStatus{Status: StatusConnected, Message: MsgConnected, LastSync: last}
}
