package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/itzcole03/A1forBolt-sub001/internal/api"
	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/database"
	"github.com/itzcole03/A1forBolt-sub001/internal/logging"
	"github.com/itzcole03/A1forBolt-sub001/internal/metrics"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
	"github.com/itzcole03/A1forBolt-sub001/internal/telemetry"
	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
)

// snapshotCacheTTL bounds how stale a restored snapshot may be. It has to
// outlive a restart plus at least one failed sync cycle.
const snapshotCacheTTL = time.Hour

// main serves as the entry point for the application.
// It delegates execution to the run function and handles exit codes based on success or failure.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run orchestrates the startup sequence of the server.
// It loads configuration, initializes telemetry, storage, the integration hub,
// the prediction services, and the HTTP server.
// It also manages graceful shutdown upon receiving termination signals.
//
// Returns:
//   - An error if initialization fails at any critical step.
func run() error {
	// Local development keeps secrets in a .env file; production injects
	// them through the process environment.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the shared service logger
	logger := logging.NewServiceLogger(cfg.LogLevel, cfg.Logging)

	// App-event logger; exports records over OTLP when configured
	appLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.ExportLogs,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := appLogger.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown log exporter")
		}
	}()

	// Initialize the trace pipeline
	ctx := context.Background()
	telemetryProvider, err := telemetry.NewProvider(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Redis - continuing without cache")
		// Don't fail startup on Redis connection issues, continue without cache
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize cache analytics and the snapshot cache. Both stay nil when
	// Redis is unavailable; the hub and routes treat nil as cache-off.
	var cacheAnalytics *cache.CacheAnalytics
	var snapshots *cache.SnapshotCache
	if redisClient != nil {
		cacheAnalytics = cache.NewCacheAnalytics(redisClient.Client)
		cacheAnalytics.StartPeriodicReporting(ctx, 5*time.Minute)
		snapshots = cache.NewSnapshotCache(redisClient.Client, snapshotCacheTTL, cacheAnalytics)
	}

	// Prometheus recorder shared by the hub, the engines and the monitor
	recorder := metrics.New(prometheus.NewRegistry())

	// Initialize the data integration hub and its provider adapters
	hub := services.NewDataIntegrationHub(cfg, logger, snapshots, recorder)
	if err := registerAdapters(hub, cfg.Sources); err != nil {
		return fmt.Errorf("failed to register source adapters: %w", err)
	}

	// Initialize the analysis engine; it rebuilds its entity analyses after
	// every published snapshot.
	analysisEngine := services.NewAnalysisEngine(cfg, logger)
	hub.Subscribe(analysisEngine)

	// Initialize the ensemble prediction engine
	predictionEngine := services.NewPredictionEngine(cfg, logger, recorder)

	// Initialize Telegram alerting and the performance monitor
	notifier := services.NewAlertNotifier(cfg.Telegram, logger)
	monitor := services.NewPerformanceMonitor(cfg, logger, recorder, notifier)

	// Start periodic host resource sampling
	statsCollector := services.NewSystemStatsCollector(cfg, logger)
	statsCollector.Start(ctx)
	defer statsCollector.Stop()

	// Start the sync loop
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start integration hub: %w", err)
	}
	defer hub.Stop()

	// Persistence for predictions, settled outcomes and alerts
	repo := database.NewPredictionRepository(database.NewTracedPool(db.Pool, logger))

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Setup routes
	api.SetupRoutes(router, cfg, logger, db, redisClient, hub, analysisEngine, predictionEngine, monitor, statsCollector, cacheAnalytics, repo, recorder, notifier)

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Logger().Info("Application startup",
			"service", cfg.Telemetry.ServiceName,
			"version", cfg.Telemetry.ServiceVersion,
			"port", cfg.Server.Port,
			"event", "startup",
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Logger().Info("Application shutdown",
		"service", cfg.Telemetry.ServiceName,
		"event", "shutdown",
		"reason", "signal received",
	)

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

// registerAdapters wires every enabled provider endpoint into the hub. Each
// adapter is wrapped in a short-TTL cache so a provider outage can be bridged
// by the last good payload.
func registerAdapters(hub *services.DataIntegrationHub, cfg config.SourcesConfig) error {
	newClient := func(ep config.SourceEndpointConfig) *feeds.Client {
		return feeds.NewClient(feeds.ClientOptions{
			BaseURL:        ep.BaseURL,
			APIKey:         ep.APIKey,
			Timeout:        cfg.FetchTimeoutDuration(),
			RequestsPerSec: ep.RequestsPerSec,
		})
	}

	var adapters []feeds.SourceAdapter
	if cfg.Projections.Enabled {
		adapters = append(adapters, feeds.NewProjectionsAdapter(cfg.Projections.ID, newClient(cfg.Projections)))
	}
	if cfg.Sentiment.Enabled {
		adapters = append(adapters, feeds.NewSentimentAdapter(cfg.Sentiment.ID, newClient(cfg.Sentiment), cfg.MinMentions))
	}
	if cfg.Odds.Enabled {
		adapters = append(adapters, feeds.NewOddsAdapter(cfg.Odds.ID, newClient(cfg.Odds), cfg.OddsRegion))
	}
	if cfg.Injuries.Enabled {
		adapters = append(adapters, feeds.NewInjuryAdapter(cfg.Injuries.ID, newClient(cfg.Injuries)))
	}

	ttl := cfg.CacheTTLDuration()
	for _, adapter := range adapters {
		if err := hub.RegisterSource(feeds.NewCachedAdapter(adapter, ttl)); err != nil {
			return err
		}
	}
	return nil
}
