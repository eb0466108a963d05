package integration

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/hikcloud"
)

type CredentialStore interface {
	ConfigLoader
	hikcloud.TokenPersister
}

// CameraStore is everything the per-session services need from hikvision_cloud_cameras.
// data.CloudCameraModel implements it.
type CameraStore interface {
	cameras.Repository
	cameras.SyncRepository
	SyncLookup
}

// Builder wires one Facade per session. Sessions of one tenant share a TokenManager, since
// the tenant has a single refresh token and a refresh rotates it for everyone. Everything
// else a Facade uses is its own, apart from the stores and the publisher.
type Builder struct {
	Store      CredentialStore
	Cameras    CameraStore
	Tenants    cameras.TenantResolver
	Auditor    cameras.Auditor
	Publisher  events.Publisher
	HTTPClient *http.Client
	Now        func() time.Time

	mu     sync.Mutex
	tokens map[uuid.UUID]*hikcloud.TokenManager
}

// tokenManager returns the tenant's TokenManager, creating it on first use.
func (b *Builder) tokenManager(tenantID uuid.UUID, hc *http.Client, now func() time.Time) *hikcloud.TokenManager {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.tokens[tenantID]; ok {
		return m
	}
	if b.tokens == nil {
		b.tokens = make(map[uuid.UUID]*hikcloud.TokenManager)
	}
	m := hikcloud.NewTokenManager(hikcloud.TokenManagerConfig{
		HTTPClient: hc,
		Persister:  b.Store,
		Now:        now,
	})
	b.tokens[tenantID] = m
	return m
}

func (b *Builder) Build(ctx context.Context, tenantID, userID uuid.UUID) *Facade {
	now := b.Now
	if now == nil {
		now = time.Now
	}
	hc := b.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: hikcloud.DefaultTimeout}
	}

	tokens := b.tokenManager(tenantID, hc, now)
	gateway := hikcloud.NewGateway(tokens, hc)

	return NewFacade(ctx, FacadeDeps{
		TenantID:  tenantID,
		UserID:    userID,
		Store:     b.Store,
		Tokens:    tokens,
		Directory: cameras.NewDirectory(b.Cameras, b.Tenants, b.Auditor).WithClock(now),
		Monitor:   NewStatusMonitor(tokens, b.Cameras, now),
		Syncer:    cameras.NewSyncer(gateway, b.Cameras, now),
		Publisher: b.Publisher,
		Now:       now,
	})
}
