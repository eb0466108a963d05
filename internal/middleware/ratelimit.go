package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/technosupport/secops/internal/ratelimit"
)

type Config struct {
	GlobalIP  ratelimit.LimitConfig            `yaml:"global_ip"`
	Tenant    ratelimit.LimitConfig            `yaml:"tenant"`
	User      ratelimit.LimitConfig            `yaml:"user"`
	Endpoints map[string]ratelimit.LimitConfig `yaml:"endpoints"`
	// FailClosedPrefixes return 503 instead of passing through when Redis is down.
	FailClosedPrefixes []string `yaml:"fail_closed_prefixes"`
}

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter

	mu     sync.RWMutex
	config Config
}

func NewRateLimitMiddleware(l *ratelimit.Limiter, c Config) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: l, config: c}
}

// SetConfig swaps the limits in place; the config watcher calls it on reload.
func (m *RateLimitMiddleware) SetConfig(c Config) {
	m.mu.Lock()
	m.config = c
	m.mu.Unlock()
	log.Printf("[RATELIMIT] limits reloaded: ip=%d/%s tenant=%d/%s user=%d/%s",
		c.GlobalIP.Rate, c.GlobalIP.Window, c.Tenant.Rate, c.Tenant.Window, c.User.Rate, c.User.Window)
}

func (m *RateLimitMiddleware) current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GlobalLimiter enforces the per-IP limit. Mount it before authentication.
func (m *RateLimitMiddleware) GlobalLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := m.current()
		ipHash := m.limiter.HashIP(clientIP(r))

		if cfg.GlobalIP.Enabled() {
			if !m.check(w, r, cfg, ratelimit.ScopeGlobalIP, "rl:ip:"+ipHash, cfg.GlobalIP) {
				return
			}
		}

		if ep, ok := cfg.Endpoints[r.URL.Path]; ok && ep.Enabled() {
			if !m.check(w, r, cfg, ratelimit.ScopeEndpoint, fmt.Sprintf("rl:ep:%s:%s", ipHash, r.URL.Path), ep) {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// TenantLimiter enforces the tenant and user limits. Mount it after JWTAuth.
func (m *RateLimitMiddleware) TenantLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := GetAuthContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		cfg := m.current()

		if cfg.Tenant.Enabled() {
			if !m.check(w, r, cfg, ratelimit.ScopeTenant, "rl:tenant:"+ac.TenantID, cfg.Tenant) {
				return
			}
		}
		if cfg.User.Enabled() {
			if !m.check(w, r, cfg, ratelimit.ScopeUser, fmt.Sprintf("rl:user:%s:%s", ac.TenantID, ac.UserID), cfg.User) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// check reports whether the request may continue; on false the response is written.
func (m *RateLimitMiddleware) check(w http.ResponseWriter, r *http.Request, cfg Config, scope ratelimit.Scope, key string, limit ratelimit.LimitConfig) bool {
	decision, err := m.limiter.CheckRateLimit(r.Context(), scope, key, limit)
	if err != nil {
		RecordRedisError()
		for _, p := range cfg.FailClosedPrefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				log.Printf("[RATELIMIT] %s check failed, closing %s: %v", scope, r.URL.Path, err)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return false
			}
		}
		log.Printf("[RATELIMIT] %s check failed, passing %s: %v", scope, r.URL.Path, err)
		return true
	}

	RecordRateLimit(string(scope), decision.Allowed)
	if !decision.Allowed {
		m.writeRateLimitHeaders(w, decision)
		http.Error(w, fmt.Sprintf("Rate limit exceeded (%s)", scope), http.StatusTooManyRequests)
		return false
	}
	return true
}

func (m *RateLimitMiddleware) writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
