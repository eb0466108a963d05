package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/integration"
	"github.com/technosupport/secops/internal/middleware"
	"github.com/technosupport/secops/internal/platform/paths"
	"github.com/technosupport/secops/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a lib/pq connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type NATSConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	MaxRetries int    `yaml:"max_retries"`
}

type AuthConfig struct {
	JWTSigningKey string        `yaml:"-"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
}

type AuditConfig struct {
	SpoolDir       string        `yaml:"spool_dir"`
	SpoolMaxMB     int64         `yaml:"spool_max_mb"`
	ReplayInterval time.Duration `yaml:"replay_interval"`
}

type IntegrationConfig struct {
	TenantResolution string        `yaml:"tenant_resolution"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	SessionCacheSize int           `yaml:"session_cache_size"`
}

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	NATS        NATSConfig        `yaml:"nats"`
	Auth        AuthConfig        `yaml:"auth"`
	Audit       AuditConfig       `yaml:"audit"`
	Integration IntegrationConfig `yaml:"integration"`
	RateLimits  middleware.Config `yaml:"rate_limits"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "secops", Name: "secops", SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		NATS:     NATSConfig{Subject: events.DefaultSubject, MaxRetries: 3},
		Auth:     AuthConfig{AccessTTL: 15 * time.Minute},
		Audit: AuditConfig{
			SpoolDir:       paths.AuditSpoolDir(),
			SpoolMaxMB:     256,
			ReplayInterval: 30 * time.Second,
		},
		Integration: IntegrationConfig{
			TenantResolution: cameras.TenantResolutionSession,
			RequestTimeout:   15 * time.Second,
			SessionCacheSize: integration.DefaultSessionCacheSize,
		},
		RateLimits: middleware.Config{
			GlobalIP:           ratelimit.LimitConfig{Rate: 300, Window: time.Minute},
			Tenant:             ratelimit.LimitConfig{Rate: 3000, Window: time.Minute},
			User:               ratelimit.LimitConfig{Rate: 600, Window: time.Minute},
			FailClosedPrefixes: []string{"/api/v1/session/"},
		},
	}
}

// Load reads an optional .env, then the YAML file at path (missing is fine), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Auth.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&c.Integration.TenantResolution, "TENANT_RESOLUTION")

	if v := os.Getenv("DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DB_PORT %q", ErrInvalidConfig, v)
		}
		c.Database.Port = p
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.HTTP.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.HTTP.AllowedOrigins = append(c.HTTP.AllowedOrigins, o)
			}
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	switch c.Integration.TenantResolution {
	case cameras.TenantResolutionSession, cameras.TenantResolutionFirstRow:
	default:
		return fmt.Errorf("%w: unknown tenant_resolution %q", ErrInvalidConfig, c.Integration.TenantResolution)
	}
	if c.Integration.RequestTimeout <= 0 {
		return fmt.Errorf("%w: integration.request_timeout must be positive", ErrInvalidConfig)
	}
	if c.Integration.SessionCacheSize <= 0 {
		return fmt.Errorf("%w: integration.session_cache_size must be positive", ErrInvalidConfig)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("%w: database.port %d", ErrInvalidConfig, c.Database.Port)
	}
	if c.Audit.SpoolMaxMB <= 0 {
		return fmt.Errorf("%w: audit.spool_max_mb must be positive", ErrInvalidConfig)
	}
	if c.NATS.MaxRetries < 0 {
		return fmt.Errorf("%w: nats.max_retries must not be negative", ErrInvalidConfig)
	}
	return validateLimits(c.RateLimits)
}

func validateLimits(rl middleware.Config) error {
	check := func(name string, l ratelimit.LimitConfig) error {
		if l.Rate < 0 || l.Window < 0 {
			return fmt.Errorf("%w: rate limit %s must not be negative", ErrInvalidConfig, name)
		}
		if l.Rate > 0 && l.Window == 0 {
			return fmt.Errorf("%w: rate limit %s needs a window", ErrInvalidConfig, name)
		}
		return nil
	}
	if err := check("global_ip", rl.GlobalIP); err != nil {
		return err
	}
	if err := check("tenant", rl.Tenant); err != nil {
		return err
	}
	if err := check("user", rl.User); err != nil {
		return err
	}
	for path, l := range rl.Endpoints {
		if err := check(path, l); err != nil {
			return err
		}
	}
	return nil
}

// LoadRateLimits re-reads only the rate_limits section; used by the watcher.
func LoadRateLimits(path string) (middleware.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return middleware.Config{}, err
	}
	var doc struct {
		RateLimits middleware.Config `yaml:"rate_limits"`
	}
	doc.RateLimits = Default().RateLimits
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return middleware.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validateLimits(doc.RateLimits); err != nil {
		return middleware.Config{}, err
	}
	return doc.RateLimits, nil
}
