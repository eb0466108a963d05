package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/secops/internal/api"
	"github.com/technosupport/secops/internal/audit"
	"github.com/technosupport/secops/internal/auth"
	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/config"
	"github.com/technosupport/secops/internal/crypto"
	"github.com/technosupport/secops/internal/data"
	"github.com/technosupport/secops/internal/events"
	"github.com/technosupport/secops/internal/hikcloud"
	"github.com/technosupport/secops/internal/integration"
	"github.com/technosupport/secops/internal/middleware"
	"github.com/technosupport/secops/internal/platform/paths"
	"github.com/technosupport/secops/internal/ratelimit"
	"github.com/technosupport/secops/internal/tokens"
)

const serviceName = "secops-server"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. Paths + Config
	if err := paths.EnsureDirs(); err != nil {
		log.Printf("Warning: data dirs not created: %v", err)
	}
	cfgPath := paths.ResolveConfigPath(*configPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Auth.JWTSigningKey == "" {
		log.Println("Warning: JWT_SIGNING_KEY unset, using development key")
		cfg.Auth.JWTSigningKey = "dev-secret-do-not-use-in-prod"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. DB Init
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("DB open error: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("DB ping error: %v", err)
	}
	models := data.NewModels(db)

	// 3. Shared Redis Client
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	// 4. Secrets keyring (optional)
	var sealer hikcloud.SecretSealer
	keyring := crypto.NewKeyring()
	if err := keyring.LoadFromEnv(); err != nil {
		log.Printf("Warning: keyring not loaded (%v), integration secrets stay in plaintext", err)
	} else {
		sealer = keyring
	}
	credStore := hikcloud.NewCredentialStore(models.Integrations, sealer)

	// 5. Audit with disk failover
	spool, err := audit.NewSpooler(cfg.Audit.SpoolDir, cfg.Audit.SpoolMaxMB)
	if err != nil {
		log.Printf("Warning: audit spool disabled: %v", err)
		spool = nil
	}
	auditService := audit.NewService(db, spool)
	if spool != nil {
		auditService.StartReplayer(ctx, cfg.Audit.ReplayInterval)
	}

	// 6. Events
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, serviceName)
		if err != nil {
			log.Printf("Warning: NATS connect failed (%v), status events are only logged", err)
		} else {
			defer nc.Drain()
			publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.MaxRetries, events.NewDedup(4096, 5*time.Second))
			log.Printf("Publishing camera status changes to %s", cfg.NATS.Subject)
		}
	}

	// 7. Integration sessions
	tenants, err := cameras.NewTenantResolver(cfg.Integration.TenantResolution, models.Tenants)
	if err != nil {
		log.Fatalf("Tenant resolution: %v", err)
	}
	builder := &integration.Builder{
		Store:      credStore,
		Cameras:    models.CloudCameras,
		Tenants:    tenants,
		Auditor:    auditService,
		Publisher:  publisher,
		HTTPClient: &http.Client{Timeout: cfg.Integration.RequestTimeout},
	}
	sessions, err := integration.NewRegistry(cfg.Integration.SessionCacheSize, builder.Build)
	if err != nil {
		log.Fatalf("Session registry: %v", err)
	}
	defer sessions.Purge()

	// 8. Auth + middleware
	tokenMgr := tokens.NewManager(cfg.Auth.JWTSigningKey).WithAccessTTL(cfg.Auth.AccessTTL)
	blacklist := auth.NewRedisBlacklist(rdb)
	rlMiddleware := middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(rdb, cfg.Auth.JWTSigningKey), cfg.RateLimits)

	config.Watch(ctx, cfgPath, func(path string) {
		rl, err := config.LoadRateLimits(path)
		if err != nil {
			log.Printf("Warning: rate limits not reloaded: %v", err)
			return
		}
		rlMiddleware.SetConfig(rl)
	})

	router := api.NewRouter(api.RouterDeps{
		Sessions:    sessions,
		Auth:        middleware.NewJWTAuth(tokenMgr, blacklist),
		RateLimit:   rlMiddleware,
		Audit:       middleware.NewAuditMiddleware(auditService, true),
		Logout:      &api.AuthHandler{Tokens: tokenMgr, Blacklist: blacklist, Sessions: sessions},
		AuditEvents: &api.AuditHandler{Service: auditService},
		Health: &api.HealthHandler{Checks: map[string]api.Check{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}},
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown requested")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown error: %v", err)
	}
	log.Println("Server stopped gracefully")
}
