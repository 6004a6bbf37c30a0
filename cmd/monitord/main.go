// Package main provides the entrypoint for the ProxWake monitoring daemon.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/alarm"
	"github.com/proxwake/proxwake/internal/api"
	"github.com/proxwake/proxwake/internal/api/middleware"
	"github.com/proxwake/proxwake/internal/api/models"
	"github.com/proxwake/proxwake/internal/database"
	"github.com/proxwake/proxwake/internal/events"
	"github.com/proxwake/proxwake/internal/geofence"
	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/internal/monitor"
	"github.com/proxwake/proxwake/internal/prefs"
	"github.com/proxwake/proxwake/internal/proximity"
	"github.com/proxwake/proxwake/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "proxwake-monitord"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ProxWake monitoring daemon")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize HTTP metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	engineMetrics, err := telemetry.NewEngineMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	// State store: Postgres when configured, in-memory otherwise
	var (
		repo       proximity.Repository
		readyCheck func(ctx context.Context) error
	)
	if os.Getenv("STATE_BACKEND") == "postgres" {
		dbConfig := database.ConfigFromEnv()
		pool, dbErr := database.Connect(ctx, dbConfig)
		if dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		repo = proximity.NewPostgresRepository(pool)
		readyCheck = pool.Ping
	} else {
		repo = proximity.NewMemoryRepository()
		log.Info().Msg("using in-memory state store")
	}

	// Preference store: Redis when configured, in-memory otherwise
	var preferences prefs.Repository
	if redisClient := prefs.OpenRedisFromEnv(); redisClient != nil {
		defer redisClient.Close()
		preferences = prefs.NewRedisRepository(redisClient)
		log.Info().Msg("using Redis preference store")
	} else {
		preferences = prefs.NewMemoryRepository()
		log.Info().Msg("using in-memory preference store")
	}

	// Event publishers: the in-process stream always runs; Pub/Sub joins
	// when a project is configured
	memPublisher := events.NewMemoryPublisher()
	var publisher events.Publisher = memPublisher
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topic := os.Getenv("PUBSUB_TOPIC")
		if topic == "" {
			topic = "proxwake-events"
		}
		psPublisher, psErr := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: projectID,
			TopicName: topic,
			Logger:    log,
		})
		if psErr != nil {
			log.Fatal().Err(psErr).Msg("failed to initialize Pub/Sub publisher")
		}
		defer func() {
			if closeErr := psPublisher.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close Pub/Sub publisher")
			}
		}()
		publisher = events.NewMultiPublisher(memPublisher, psPublisher)
		log.Info().Str("topic", topic).Msg("Pub/Sub publisher initialized")
	}

	// Engine components
	pushProvider := location.NewPushProvider()
	source := location.NewSource(location.SourceConfig{
		Provider: pushProvider,
		Logger:   log,
	})
	facility := geofence.NewLocalFacility(log)
	registrar := geofence.NewRegistrar(geofence.RegistrarConfig{
		Facility: facility,
		Store:    repo,
		Logger:   log,
	})
	announcer := alarm.NewAnnouncer(alarm.AnnouncerConfig{
		Presenter: alarm.NewLogPresenter(log),
		Logger:    log,
		VoiceEnabled: func(ctx context.Context) bool {
			enabled, prefErr := preferences.VoiceEnabled(ctx)
			return prefErr == nil && enabled
		},
	})
	dispatcher := monitor.NewDispatcher(monitor.DispatcherConfig{
		Repo:      repo,
		Announcer: announcer,
		Publisher: publisher,
		Logger:    log,
		Metrics:   engineMetrics,
	})
	service := monitor.NewService(monitor.ServiceConfig{
		Source:     source,
		Filter:     location.NewFilter(log),
		Evaluator:  geofence.NewEvaluator(log),
		Registrar:  registrar,
		Repo:       repo,
		Prefs:      preferences,
		Dispatcher: dispatcher,
		Announcer:  announcer,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    engineMetrics,
	})
	facility.SetTransitionHandler(func(t geofence.Transition) {
		if htErr := service.HandleTransition(context.Background(), t); htErr != nil {
			log.Error().Err(htErr).Msg("transition handling failed")
		}
	})
	log.Info().Msg("monitoring engine initialized")

	// Pick up a region persisted by an earlier process
	if err := service.Resume(ctx); err != nil {
		log.Error().Err(err).Msg("failed to resume persisted monitoring session")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Monitor:     service,
		FixProvider: pushProvider,
		ObserveFix:  facility.Observe,
		Events:      memPublisher,
		ReadyCheck:  readyCheck,
		EngineStatus: func() models.EngineStatus {
			return models.EngineStatus{
				SourceTier:     source.CurrentTier(),
				SourceRestarts: source.Restarts(),
				RegistrarState: registrar.State().String(),
			}
		},
	})

	// Create HTTP server
	// WriteTimeout stays disabled: /v1/events holds its response open.
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout. The persisted region is deliberately
	// left in place so the next process resumes it.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
