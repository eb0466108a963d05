package events

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
	now   func() time.Time
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	if maxKeys <= 0 {
		maxKeys = 4096
	}
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{cache: c, ttl: ttl, now: time.Now}
}

// Seen reports whether key was recorded within the ttl.
func (d *Dedup) Seen(key string) bool {
	addedAt, ok := d.cache.Get(key)
	return ok && d.now().Sub(addedAt) < d.ttl
}

// Record marks key as delivered.
func (d *Dedup) Record(key string) {
	d.cache.Add(key, d.now())
}
