package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itzcole03/A1forBolt-sub001/internal/database"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

var startTime = time.Now()

// HealthHandler reports process and dependency health
type HealthHandler struct {
	db             *database.PostgresDB
	redis          *database.RedisClient
	hub            *services.DataIntegrationHub
	statsCollector *services.SystemStatsCollector
	notifier       *services.AlertNotifier
	version        string
}

// HealthResponse is the body of the basic health endpoint
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient, hub *services.DataIntegrationHub, statsCollector *services.SystemStatsCollector, notifier *services.AlertNotifier, version string) *HealthHandler {
	return &HealthHandler{
		db:             db,
		redis:          redis,
		hub:            hub,
		statsCollector: statsCollector,
		notifier:       notifier,
		version:        version,
	}
}

// checkServices probes each configured dependency. Optional dependencies
// that were never configured report their state without degrading the
// overall status.
func (h *HealthHandler) checkServices(c *gin.Context) (map[string]string, string) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	if h.notifier != nil && h.notifier.Enabled() {
		checks["telegram"] = "healthy"
	} else {
		checks["telegram"] = "disabled"
	}

	return checks, status
}

// HealthCheck reports dependency health and overall status
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks, status := h.checkServices(c)

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  checks,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// DetailedHealth extends the basic report with system resource usage and
// integration-hub state.
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	checks, status := h.checkServices(c)

	response := gin.H{
		"status":    status,
		"timestamp": time.Now(),
		"version":   h.version,
		"uptime":    time.Since(startTime).String(),
		"services":  checks,
	}

	if h.statsCollector != nil {
		response["system"] = h.statsCollector.Latest()
	}

	if h.hub != nil {
		response["integration"] = gin.H{
			"sync_count": h.hub.SyncCount(),
			"last_sync":  h.hub.LastSync(),
			"sources":    h.hub.GetSourceMetrics(),
			"breakers":   h.hub.GetBreakerStats(),
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// ReadinessCheck gates on the hard dependencies only
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks, status := h.checkServices(c)

	if status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ready":    false,
			"services": checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ready":    true,
		"services": checks,
	})
}

// LivenessCheck only confirms the process responds
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
