package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/technosupport/secops/internal/middleware"
)

type RouterDeps struct {
	Sessions       Sessions
	Auth           *middleware.JWTAuth
	RateLimit      *middleware.RateLimitMiddleware
	Audit          *middleware.AuditMiddleware
	Logout         *AuthHandler
	AuditEvents    *AuditHandler
	Health         *HealthHandler
	AllowedOrigins []string
}

func NewRouter(d RouterDeps) http.Handler {
	cameraH := NewCameraHandler(d.Sessions)
	integrationH := NewIntegrationHandler(d.Sessions)
	streamH := NewStateStreamHandler(d.Sessions, d.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	if d.Health != nil {
		r.Get("/healthz", d.Health.GetHealth)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.GlobalLimiter)
		}
		r.Use(d.Auth.Middleware)
		if d.RateLimit != nil {
			r.Use(d.RateLimit.TenantLimiter)
		}

		r.Get("/integration/ws", streamH.ServeWS)

		r.Group(func(r chi.Router) {
			if d.Audit != nil {
				r.Use(d.Audit.LogRequest)
			}

			r.Get("/integration/config", integrationH.GetConfig)
			r.Post("/integration/config/reload", integrationH.ReloadConfig)
			r.Get("/integration/state", integrationH.GetState)
			r.Delete("/integration/error", integrationH.ClearError)

			if d.Logout != nil {
				r.Post("/session/logout", d.Logout.Logout)
			}
			if d.AuditEvents != nil {
				r.Get("/audit/events", d.AuditEvents.GetEvents)
			}

			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Use(middleware.ProjectScope)

				r.Get("/integration/status", integrationH.Status)
				r.Post("/integration/refresh", integrationH.Refresh)
				r.Post("/integration/sync", integrationH.Sync)

				r.Get("/cameras", cameraH.List)
				r.Post("/cameras", cameraH.Create)
				r.Patch("/cameras/{cameraID}", cameraH.Update)
				r.Put("/cameras/{cameraID}/status", cameraH.SetStatus)
				r.Delete("/cameras/{cameraID}", cameraH.Delete)
				r.Get("/cameras/{cameraID}/urls", cameraH.URLs)
			})
		})
	})

	return r
}
