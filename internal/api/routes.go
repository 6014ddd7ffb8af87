package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/itzcole03/A1forBolt-sub001/internal/api/handlers"
	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/database"
	"github.com/itzcole03/A1forBolt-sub001/internal/metrics"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

// SetupRoutes configures all the HTTP routes for the application.
// It sets up health checks, the Prometheus scrape endpoint and the v1 API,
// and injects dependencies into handlers.
//
// Parameters:
//
//	router: The Gin engine instance to register routes on.
//	cfg: The loaded application configuration.
//	logger: The shared structured logger.
//	db: The PostgreSQL connection wrapper, nil when the database is down.
//	redisClient: The Redis client wrapper, nil when Redis is down.
//	hub: The data integration hub.
//	analysisEngine: The per-entity analysis engine.
//	predictionEngine: The ensemble prediction engine.
//	monitor: The model performance monitor.
//	statsCollector: The host resource stats collector.
//	cacheAnalytics: Cache hit/miss analytics, nil without Redis.
//	repo: The prediction repository, nil without a database.
//	recorder: The Prometheus metrics recorder.
//	notifier: The Telegram alert notifier.
func SetupRoutes(router *gin.Engine, cfg *config.Config, logger *logrus.Logger, db *database.PostgresDB, redisClient *database.RedisClient, hub *services.DataIntegrationHub, analysisEngine *services.AnalysisEngine, predictionEngine *services.PredictionEngine, monitor *services.PerformanceMonitor, statsCollector *services.SystemStatsCollector, cacheAnalytics *cache.CacheAnalytics, repo *database.PredictionRepository, recorder *metrics.Recorder, notifier *services.AlertNotifier) {
	// A nil repository must stay a nil interface so handlers can detect it
	var store handlers.PredictionStore
	if repo != nil {
		store = repo
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, hub, statsCollector, notifier, cfg.Telemetry.ServiceVersion)
	dataHandler := handlers.NewDataHandler(hub)
	analysisHandler := handlers.NewAnalysisHandler(analysisEngine)
	predictionHandler := handlers.NewPredictionHandler(predictionEngine, monitor, store, logger)
	performanceHandler := handlers.NewPerformanceHandler(monitor, store, logger)

	// Health check and scrape endpoints stay outside the traced API group
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	// API v1 routes with telemetry
	v1 := router.Group("/api/v1")
	v1.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	{
		v1.GET("/health/detailed", healthHandler.DetailedHealth)

		// Data integration routes
		data := v1.Group("/data")
		{
			data.POST("/sync", dataHandler.TriggerSync)
			data.GET("/integrated", dataHandler.GetIntegratedData)
			data.GET("/sources", dataHandler.GetSources)
			data.PUT("/sync-interval", dataHandler.UpdateSyncInterval)
		}

		// Entity analysis routes
		analysis := v1.Group("/analysis")
		{
			analysis.GET("/entities", analysisHandler.ListEntities)
			analysis.GET("/entities/:entityId", analysisHandler.GetEntityAnalysis)
		}

		// Prediction routes
		predictions := v1.Group("/predictions")
		{
			predictions.GET("", predictionHandler.ListRecentPredictions)
			predictions.GET("/:id", predictionHandler.GetPrediction)
			predictions.POST("/generate", predictionHandler.GeneratePrediction)
			predictions.POST("/validate", predictionHandler.ValidatePrediction)
			predictions.POST("/explain", predictionHandler.ExplainPrediction)
		}

		// Engine configuration routes
		engineConfig := v1.Group("/config")
		{
			engineConfig.GET("/predictions", predictionHandler.GetConfig)
			engineConfig.PUT("/predictions/model-weights", predictionHandler.UpdateModelWeights)
			engineConfig.PUT("/predictions/risk-profiles", predictionHandler.UpdateRiskProfiles)
			engineConfig.PUT("/predictions/sure-odds-threshold", predictionHandler.UpdateSureOddsThreshold)
		}

		// Performance tracking routes
		performance := v1.Group("/performance")
		{
			performance.POST("/outcomes", performanceHandler.RecordOutcome)
			performance.GET("/models", performanceHandler.GetAllModels)
			performance.GET("/models/:model", performanceHandler.GetModelMetrics)
			performance.GET("/models/:model/history", performanceHandler.GetModelHistory)
			performance.GET("/alerts", performanceHandler.GetAlerts)
			performance.DELETE("/alerts", performanceHandler.ClearAlerts)
			performance.DELETE("/alerts/:model", performanceHandler.ClearAlerts)
		}

		// Cache monitoring and analytics
		if cacheAnalytics != nil {
			cacheHandler := handlers.NewCacheHandler(cacheAnalytics)
			cacheGroup := v1.Group("/cache")
			{
				cacheGroup.GET("/stats", cacheHandler.GetCacheStats)
				cacheGroup.GET("/stats/:category", cacheHandler.GetCacheStatsByCategory)
				cacheGroup.GET("/metrics", cacheHandler.GetCacheMetrics)
				cacheGroup.POST("/stats/reset", cacheHandler.ResetCacheStats)
			}
		} else {
			logger.Warn("Cache analytics unavailable, skipping cache routes")
		}
	}
}
