package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRedisUnavailable  = errors.New("redis unavailable")
)

type Scope string

const (
	ScopeGlobalIP Scope = "ip"
	ScopeTenant   Scope = "tenant"
	ScopeUser     Scope = "user"
	ScopeEndpoint Scope = "endpoint"
)

type Decision struct {
	Scope      Scope
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter int // seconds
	Allowed    bool
}

type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

// Enabled reports whether the limit should be enforced at all.
func (c LimitConfig) Enabled() bool {
	return c.Rate > 0 && c.Window > 0
}

// INCR plus PEXPIRE on first hit; returns the count and the remaining window in ms.
var fixedWindow = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if tonumber(current) == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	return {current, ttl}
`)

type Limiter struct {
	client redis.Scripter
	salt   string
	now    func() time.Time
}

func NewLimiter(client redis.Scripter, salt string) *Limiter {
	if salt == "" {
		salt = "secops-default-salt"
	}
	return &Limiter{client: client, salt: salt, now: time.Now}
}

// HashIP keeps raw client addresses out of Redis keys.
func (l *Limiter) HashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip + l.salt))
	return hex.EncodeToString(hash[:])
}

// CheckRateLimit counts one hit against key in a fixed window that starts at the first hit.
func (l *Limiter) CheckRateLimit(ctx context.Context, scope Scope, key string, config LimitConfig) (*Decision, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{key}, config.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return nil, ErrRedisUnavailable
	}

	count, ttlMS := int(res[0]), res[1]
	if ttlMS < 0 {
		ttlMS = config.Window.Milliseconds()
	}
	reset := l.now().Add(time.Duration(ttlMS) * time.Millisecond)

	remaining := config.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	retry := int((time.Duration(ttlMS)*time.Millisecond + time.Second - 1) / time.Second)
	return &Decision{
		Scope:      scope,
		Limit:      config.Rate,
		Remaining:  remaining,
		Reset:      reset,
		RetryAfter: retry,
		Allowed:    count <= config.Rate,
	}, nil
}
