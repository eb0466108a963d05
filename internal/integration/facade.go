package integration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/hikcloud"
)

type ConfigLoader interface {
	Load(ctx context.Context, tenantID uuid.UUID) (*hikcloud.Config, bool)
}

// TokenHolder receives the loaded config and reports the live one, refreshed tokens included.
type TokenHolder interface {
	SetConfig(cfg *hikcloud.Config)
	Config() (*hikcloud.Config, bool)
	IsValid() bool
	Refresh(ctx context.Context) bool
}

type CameraDirectory interface {
	List(ctx context.Context, tenantID, projectID uuid.UUID) []cameras.Camera
	UpdateStatus(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, status cameras.Status) bool
	UpdateSettings(ctx context.Context, tenantID, projectID, cameraID uuid.UUID, patch cameras.Patch) bool
	Add(ctx context.Context, tenantID, projectID uuid.UUID, in cameras.Input) *cameras.Camera
	Delete(ctx context.Context, tenantID, projectID, cameraID uuid.UUID) bool
}

type StatusChecker interface {
	Check(ctx context.Context, tenantID, projectID uuid.UUID) IntegrationStatus
}

type CameraSyncer interface {
	Sync(ctx context.Context, tenantID, projectID uuid.UUID) (int, error)
}

// State is a point-in-time copy of what the facade holds.
type State struct {
	ProjectID         uuid.UUID              `json:"project_id"`
	Cameras           []cameras.Camera       `json:"cameras"`
	Config            *hikcloud.MaskedConfig `json:"config"`
	Loading           bool                   `json:"loading"`
	Error             string                 `json:"error,omitempty"`
	IntegrationStatus *IntegrationStatus     `json:"integration_status,omitempty"`
}

type FacadeDeps struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Store     ConfigLoader
	Tokens    TokenHolder
	Directory CameraDirectory
	Monitor   StatusChecker
	Syncer    CameraSyncer
	Publisher events.Publisher
	Now       func() time.Time
}

// Facade is the per-session coordinator UI surfaces talk to. Operations never return
// errors; failures leave a readable message in State().Error until the next operation
// or ClearError.
type Facade struct {
	tenantID  uuid.UUID
	userID    uuid.UUID
	store     ConfigLoader
	tokens    TokenHolder
	directory CameraDirectory
	monitor   StatusChecker
	syncer    CameraSyncer
	publisher events.Publisher
	now       func() time.Time

	mu        sync.Mutex
	projectID uuid.UUID
	cameras   []cameras.Camera
	inflight  int
	errMsg    string
	status    *IntegrationStatus
	subs      map[chan State]struct{}
	closed    bool
}

// NewFacade builds the facade and loads the tenant's integration config.
func NewFacade(ctx context.Context, d FacadeDeps) *Facade {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	f := &Facade{
		tenantID:  d.TenantID,
		userID:    d.UserID,
		store:     d.Store,
		tokens:    d.Tokens,
		directory: d.Directory,
		monitor:   d.Monitor,
		syncer:    d.Syncer,
		publisher: d.Publisher,
		now:       now,
		cameras:   []cameras.Camera{},
		subs:      make(map[chan State]struct{}),
	}
	f.LoadConfig(ctx)
	return f
}

func (f *Facade) TenantID() uuid.UUID { return f.tenantID }

func (f *Facade) begin() {
	f.mu.Lock()
	f.inflight++
	f.errMsg = ""
	f.mu.Unlock()
	f.broadcast()
}

// end records msg as the error when non-empty.
func (f *Facade) end(msg string) {
	f.mu.Lock()
	if f.inflight > 0 {
		f.inflight--
	}
	if msg != "" {
		f.errMsg = msg
		log.Printf("[FACADE] tenant %s: %s", f.tenantID, msg)
	}
	f.mu.Unlock()
	f.broadcast()
}

func (f *Facade) actorCtx(ctx context.Context) context.Context {
	if f.userID == uuid.Nil || audit.ActorFromContext(ctx) != nil {
		return ctx
	}
	return audit.WithActor(ctx, f.userID)
}

func (f *Facade) LoadConfig(ctx context.Context) bool {
	f.begin()
	cfg, ok := f.store.Load(ctx, f.tenantID)
	f.tokens.SetConfig(cfg)
	if !ok {
		f.end(MsgNotConfigured)
		return false
	}
	f.end("")
	return true
}

// LoadCameras replaces the cache with the project's cameras.
func (f *Facade) LoadCameras(ctx context.Context, projectID uuid.UUID) []cameras.Camera {
	f.begin()
	list := f.directory.List(ctx, f.tenantID, projectID)

	f.mu.Lock()
	f.projectID = projectID
	f.cameras = list
	out := append([]cameras.Camera(nil), list...)
	f.mu.Unlock()

	f.end("")
	return out
}

// UpdateCameraStatus, UpdateCameraSettings and DeleteCamera only touch cameras of projectID.
func (f *Facade) UpdateCameraStatus(ctx context.Context, projectID, cameraID uuid.UUID, status cameras.Status) bool {
	f.begin()
	if !f.directory.UpdateStatus(f.actorCtx(ctx), f.tenantID, projectID, cameraID, status) {
		f.end("Camera status could not be updated")
		return false
	}

	at := f.now()
	var previous string
	f.patchCached(cameraID, func(c *cameras.Camera) {
		previous = string(c.Status)
		c.Status = status
		c.UpdatedAt = at
	})
	f.end("")

	f.publishStatus(ctx, projectID, cameraID, string(status), previous, at)
	return true
}

func (f *Facade) UpdateCameraSettings(ctx context.Context, projectID, cameraID uuid.UUID, patch cameras.Patch) bool {
	f.begin()
	if err := patch.Validate(); err != nil {
		f.end("Camera settings are invalid: " + err.Error())
		return false
	}
	if !f.directory.UpdateSettings(f.actorCtx(ctx), f.tenantID, projectID, cameraID, patch) {
		f.end("Camera settings could not be updated")
		return false
	}

	at := f.now()
	f.patchCached(cameraID, func(c *cameras.Camera) {
		*c = cameras.ApplyPatch(*c, patch, at)
	})
	f.end("")
	return true
}

func (f *Facade) AddCamera(ctx context.Context, projectID uuid.UUID, in cameras.Input) *cameras.Camera {
	f.begin()
	cam := f.directory.Add(f.actorCtx(ctx), f.tenantID, projectID, in)
	if cam == nil {
		f.end("Camera could not be added")
		return nil
	}

	f.mu.Lock()
	if f.projectID == projectID {
		f.cameras = append([]cameras.Camera{*cam}, f.cameras...)
	}
	f.mu.Unlock()

	f.end("")
	return cam
}

func (f *Facade) DeleteCamera(ctx context.Context, projectID, cameraID uuid.UUID) bool {
	f.begin()
	if !f.directory.Delete(f.actorCtx(ctx), f.tenantID, projectID, cameraID) {
		f.end("Camera could not be deleted")
		return false
	}

	f.mu.Lock()
	for i := range f.cameras {
		if f.cameras[i].ID == cameraID {
			f.cameras = append(f.cameras[:i:i], f.cameras[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	f.end("")
	return true
}

func (f *Facade) CheckIntegrationStatus(ctx context.Context, projectID uuid.UUID) IntegrationStatus {
	f.begin()
	st := f.monitor.Check(ctx, f.tenantID, projectID)

	f.mu.Lock()
	f.status = &st
	f.mu.Unlock()

	if st.Status == StatusError {
		f.end(st.Message)
	} else {
		f.end("")
	}
	return st
}

// renewToken refreshes a stale access token when a refresh token is loaded. Failure is
// logged; the status check that follows reports the token as invalid.
func (f *Facade) renewToken(ctx context.Context) {
	cfg, ok := f.tokens.Config()
	if !ok || cfg.RefreshToken == "" || f.tokens.IsValid() {
		return
	}
	if !f.tokens.Refresh(ctx) {
		log.Printf("[FACADE] tenant %s: access token refresh failed", f.tenantID)
	}
}

// RefreshIntegration renews a stale token, re-checks status and reloads cameras only
// when connected.
func (f *Facade) RefreshIntegration(ctx context.Context, projectID uuid.UUID) IntegrationStatus {
	f.renewToken(ctx)
	st := f.CheckIntegrationStatus(ctx, projectID)
	if st.Status == StatusConnected {
		f.LoadCameras(ctx, projectID)
	}
	return st
}

// SyncCameras pulls the device list into storage and reloads the project.
func (f *Facade) SyncCameras(ctx context.Context, projectID uuid.UUID) (int, bool) {
	f.renewToken(ctx)
	st := f.CheckIntegrationStatus(ctx, projectID)
	if st.Status != StatusConnected {
		f.setError("Cameras cannot be synced: " + st.Message)
		return 0, false
	}

	f.begin()
	n, err := f.syncer.Sync(ctx, f.tenantID, projectID)
	if err != nil {
		f.end(syncMessage(err))
		if n > 0 {
			f.LoadCameras(ctx, projectID)
		}
		return n, false
	}
	f.end("")

	f.LoadCameras(ctx, projectID)
	return n, true
}

func syncMessage(err error) string {
	var ie *hikcloud.IntegrationError
	if errors.As(err, &ie) {
		switch ie.Kind {
		case hikcloud.KindTokenRefreshFailed:
			return "Camera sync failed: the access token could not be refreshed"
		case hikcloud.KindRemoteAPI:
			return fmt.Sprintf("Camera sync failed: device API returned %d %s", ie.StatusCode, ie.Message)
		case hikcloud.KindTransport:
			return "Camera sync failed: device API unreachable"
		case hikcloud.KindNotConfigured:
			return "Camera sync failed: " + MsgNotConfigured
		}
	}
	return "Camera sync failed"
}

// StreamURL and SnapshotURL look up a cached camera; false means it is not cached.
func (f *Facade) StreamURL(cameraID uuid.UUID) (string, bool) {
	c, ok := f.cached(cameraID)
	if !ok {
		return "", false
	}
	return cameras.StreamURL(c), true
}

func (f *Facade) SnapshotURL(cameraID uuid.UUID) (string, bool) {
	c, ok := f.cached(cameraID)
	if !ok {
		return "", false
	}
	return cameras.SnapshotURL(c), true
}

func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Facade) stateLocked() State {
	st := State{
		ProjectID: f.projectID,
		Cameras:   append([]cameras.Camera{}, f.cameras...),
		Loading:   f.inflight > 0,
		Error:     f.errMsg,
	}
	if f.status != nil {
		s := *f.status
		st.IntegrationStatus = &s
	}
	if cfg, ok := f.tokens.Config(); ok {
		m := cfg.Masked()
		st.Config = &m
	}
	return st
}

func (f *Facade) ClearError() {
	f.setError("")
}

func (f *Facade) setError(msg string) {
	f.mu.Lock()
	f.errMsg = msg
	f.mu.Unlock()
	f.broadcast()
}

// Subscribe streams state snapshots. Slow readers only see the latest snapshot.
// The returned func unsubscribes; Close ends every stream.
func (f *Facade) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	ch <- f.stateLocked()
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

func (f *Facade) broadcast() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return
	}
	st := f.stateLocked()
	for ch := range f.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (f *Facade) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		close(ch)
	}
	f.subs = map[chan State]struct{}{}
}

func (f *Facade) cached(cameraID uuid.UUID) (cameras.Camera, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cameras {
		if c.ID == cameraID {
			return c, true
		}
	}
	return cameras.Camera{}, false
}

func (f *Facade) patchCached(cameraID uuid.UUID, fn func(c *cameras.Camera)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cameras {
		if f.cameras[i].ID == cameraID {
			fn(&f.cameras[i])
			return
		}
	}
}

func (f *Facade) publishStatus(ctx context.Context, projectID, cameraID uuid.UUID, status, previous string, at time.Time) {
	if f.publisher == nil {
		return
	}
	evt := events.NewCameraStatusChanged(f.tenantID, projectID, cameraID, status, previous, at)
	if f.userID != uuid.Nil {
		uid := f.userID
		evt.ActorUserID = &uid
	}
	if err := f.publisher.PublishStatus(ctx, evt); err != nil {
		log.Printf("[FACADE] publish status change for camera %s: %v", cameraID, err)
	}
}
