// Package api provides the HTTP API for ProxWake.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/api/handler"
	"github.com/proxwake/proxwake/internal/api/middleware"
	"github.com/proxwake/proxwake/internal/api/models"
	"github.com/proxwake/proxwake/internal/events"
	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/internal/monitor"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Monitor is the engine facade behind the lifecycle endpoints.
	Monitor *monitor.Service

	// FixProvider receives ingested fixes for the continuous pipeline.
	FixProvider *location.PushProvider

	// ObserveFix additionally feeds each ingested fix to the in-process
	// geofence facility. May be nil.
	ObserveFix func(location.Fix)

	// Events backs the SSE stream. May be nil to disable /v1/events.
	Events *events.MemoryPublisher

	// ReadyCheck pings the state store for readiness probes. May be nil.
	ReadyCheck func(ctx context.Context) error

	// EngineStatus supplies engine internals for /v1/ops/status. May be nil.
	EngineStatus func() models.EngineStatus
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "proxwake-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger, "/v1/fixes")) // Structured logging; fix ingest is quiet
	r.Use(middleware.Recovery(cfg.Logger))            // Panic recovery
	r.Use(chimiddleware.RealIP)                       // Real IP extraction
	r.Use(middleware.SecurityHeaders)                 // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)                      // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)                 // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadyCheck, cfg.EngineStatus)
	monitorHandler := handler.NewMonitorHandler(cfg.Monitor)
	fixesHandler := handler.NewFixesHandler(cfg.FixProvider, cfg.ObserveFix)

	ingestRateLimit := middleware.RateLimitByIP(middleware.IngestRateLimit)     // 120 req/min
	controlRateLimit := middleware.RateLimitByIP(middleware.ControlRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Engine snapshot for UI rendering
		r.With(standardRateLimit).Get("/status", monitorHandler.GetStatus)

		// Monitoring lifecycle
		r.Route("/monitor", func(r chi.Router) {
			r.Use(controlRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/", monitorHandler.StartMonitoring)
			r.Delete("/", monitorHandler.StopMonitoring)
			r.Patch("/radius", monitorHandler.UpdateRadius)
		})

		// Location fix ingest - high-volume endpoint
		r.With(ingestRateLimit, middleware.RequireJSON).Post("/fixes", fixesHandler.SubmitFix)

		// Live event stream
		if cfg.Events != nil {
			eventsHandler := handler.NewEventsHandler(cfg.Events)
			r.With(standardRateLimit).Get("/events", eventsHandler.Stream)
		}
	})

	return r
}
