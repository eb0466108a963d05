package integration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/technosupport/secops/internal/metrics"
)

const (
	DefaultSessionCacheSize = 1024
	sessionBuildTimeout     = 10 * time.Second
)

type BuildFunc func(ctx context.Context, tenantID, userID uuid.UUID) *Facade

// Registry keeps one Facade per (tenant, user). Evicted facades are closed.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Facade]
	build BuildFunc
}

func NewRegistry(size int, build BuildFunc) (*Registry, error) {
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	c, err := lru.NewWithEvict[string, *Facade](size, func(_ string, f *Facade) {
		f.Close()
		metrics.ActiveSessions.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &Registry{cache: c, build: build}, nil
}

func sessionKey(tenantID, userID uuid.UUID) string {
	return tenantID.String() + ":" + userID.String()
}

// Get returns the session facade, building it on first use. The build runs outside the
// lock on a context detached from the request, so a cancelled request cannot leave a
// session without its config. When two builds race, the first one stored wins.
func (r *Registry) Get(ctx context.Context, tenantID, userID uuid.UUID) *Facade {
	key := sessionKey(tenantID, userID)
	if f, ok := r.cache.Get(key); ok {
		return f
	}

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionBuildTimeout)
	defer cancel()
	f := r.build(bctx, tenantID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, found, _ := r.cache.PeekOrAdd(key, f); found {
		f.Close()
		return prev
	}
	metrics.ActiveSessions.Inc()
	return f
}

// Drop closes and forgets the session, if any.
func (r *Registry) Drop(tenantID, userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Remove(sessionKey(tenantID, userID))
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge closes every session.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
