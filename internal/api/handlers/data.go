package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

// DataHandler exposes the integration hub: on-demand syncs, the current
// snapshot, and per-source health.
type DataHandler struct {
	hub *services.DataIntegrationHub
}

// NewDataHandler creates a new data integration handler
func NewDataHandler(hub *services.DataIntegrationHub) *DataHandler {
	return &DataHandler{
		hub: hub,
	}
}

// SyncSummary describes the snapshot produced by a synchronization cycle
type SyncSummary struct {
	Timestamp    time.Time `json:"timestamp"`
	Projections  int       `json:"projections"`
	Sentiment    int       `json:"sentiment"`
	Odds         int       `json:"odds"`
	Injuries     int       `json:"injuries"`
	Trends       int       `json:"trends"`
	Correlations int       `json:"correlations"`
	SyncCount    int64     `json:"sync_count"`
}

func summarizeSnapshot(data *models.IntegratedData, syncCount int64) SyncSummary {
	return SyncSummary{
		Timestamp:    data.Timestamp,
		Projections:  len(data.Projections),
		Sentiment:    len(data.Sentiment),
		Odds:         len(data.Odds),
		Injuries:     len(data.Injuries),
		Trends:       len(data.Trends),
		Correlations: len(data.Correlations),
		SyncCount:    syncCount,
	}
}

// TriggerSync runs a synchronization cycle across all registered sources and
// returns a summary of the resulting snapshot.
func (h *DataHandler) TriggerSync(c *gin.Context) {
	data := h.hub.SynchronizeAll(c.Request.Context())
	c.JSON(http.StatusOK, summarizeSnapshot(data, h.hub.SyncCount()))
}

// GetIntegratedData returns the latest integrated snapshot
func (h *DataHandler) GetIntegratedData(c *gin.Context) {
	data := h.hub.GetIntegratedData()
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no integrated data available yet"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetSources reports reliability metrics and breaker state for every
// registered source.
func (h *DataHandler) GetSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources":    h.hub.GetSourceMetrics(),
		"breakers":   h.hub.GetBreakerStats(),
		"last_sync":  h.hub.LastSync(),
		"sync_count": h.hub.SyncCount(),
	})
}

// UpdateSyncIntervalRequest carries the new interval for background syncs
type UpdateSyncIntervalRequest struct {
	Interval string `json:"interval" binding:"required"`
}

// UpdateSyncInterval changes how often the background loop synchronizes.
// The interval is a Go duration string such as "30s" or "5m".
func (h *DataHandler) UpdateSyncInterval(c *gin.Context) {
	var req UpdateSyncIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval: " + err.Error()})
		return
	}
	if interval <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be positive"})
		return
	}

	h.hub.SetSyncInterval(interval)
	c.JSON(http.StatusOK, gin.H{"interval": h.hub.SyncInterval().String()})
}
