package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

// PerformanceHandler records bet outcomes and serves per-model performance
type PerformanceHandler struct {
	monitor *services.PerformanceMonitor
	store   PredictionStore
	logger  *logrus.Logger
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(monitor *services.PerformanceMonitor, store PredictionStore, logger *logrus.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		monitor: monitor,
		store:   store,
		logger:  logger,
	}
}

// RecordOutcomeRequest is one settled bet. Stake and payout accept JSON
// numbers or strings.
type RecordOutcomeRequest struct {
	ModelName string          `json:"model_name" binding:"required"`
	Stake     decimal.Decimal `json:"stake"`
	Payout    decimal.Decimal `json:"payout"`
	Odds      float64         `json:"odds"`
}

// RecordOutcome folds a settled bet into the model's rolling metrics, runs
// threshold monitoring against the updated numbers and persists both the
// outcome and any new alerts in the background.
func (h *PerformanceHandler) RecordOutcome(c *gin.Context) {
	var req RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.monitor.RecordOutcome(req.ModelName, req.Stake, req.Payout, req.Odds); err != nil {
		if errors.Is(err, services.ErrInvalidOutcome) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics, _ := h.monitor.GetMetrics(req.ModelName)
	alerts := h.monitor.MonitorPerformance(req.ModelName, &metrics)

	go h.persistOutcome(req, alerts)

	c.JSON(http.StatusOK, gin.H{
		"metrics": metrics,
		"alerts":  alerts,
	})
}

// persistOutcome saves the settled bet and the alerts it triggered
func (h *PerformanceHandler) persistOutcome(req RecordOutcomeRequest, alerts []models.Alert) {
	if h.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	outcome := &models.Outcome{
		ID:         uuid.New().String(),
		ModelName:  req.ModelName,
		Stake:      req.Stake,
		Payout:     req.Payout,
		Odds:       req.Odds,
		ProfitLoss: req.Payout.Sub(req.Stake),
		Won:        req.Payout.GreaterThan(req.Stake),
		RecordedAt: time.Now(),
	}
	if err := h.store.SaveOutcome(ctx, outcome); err != nil {
		h.logger.WithError(err).WithField("model", req.ModelName).Error("Failed to persist outcome")
	}

	for i := range alerts {
		if err := h.store.SaveAlert(ctx, &alerts[i]); err != nil {
			h.logger.WithError(err).WithField("alert_id", alerts[i].ID).Error("Failed to persist alert")
		}
	}
}

// GetAllModels returns rolling metrics for every tracked model
func (h *PerformanceHandler) GetAllModels(c *gin.Context) {
	all := h.monitor.GetAllMetrics()
	c.JSON(http.StatusOK, gin.H{
		"models": all,
		"count":  len(all),
	})
}

// GetModelMetrics returns rolling metrics for one model
func (h *PerformanceHandler) GetModelMetrics(c *gin.Context) {
	modelName := c.Param("model")
	metrics, ok := h.monitor.GetMetrics(modelName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics for model " + modelName})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// GetModelHistory returns the per-outcome performance snapshots for one model
func (h *PerformanceHandler) GetModelHistory(c *gin.Context) {
	modelName := c.Param("model")
	history := h.monitor.GetHistory(modelName)
	c.JSON(http.StatusOK, gin.H{
		"model":   modelName,
		"history": history,
		"count":   len(history),
	})
}

// GetAlerts returns threshold alerts, optionally filtered by the model,
// severity and since query parameters. since is RFC 3339.
func (h *PerformanceHandler) GetAlerts(c *gin.Context) {
	filter := models.AlertFilter{
		ModelName: c.Query("model"),
		Severity:  models.AlertSeverity(c.Query("severity")),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp: " + err.Error()})
			return
		}
		filter.Since = since
	}

	alerts := h.monitor.GetAlerts(filter)
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ClearAlerts drops buffered alerts, for every model or just the one in the
// path.
func (h *PerformanceHandler) ClearAlerts(c *gin.Context) {
	modelName := c.Param("model")
	h.monitor.ClearAlerts(modelName)

	if modelName == "" {
		c.JSON(http.StatusOK, gin.H{"message": "all alerts cleared"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alerts cleared for model " + modelName})
}
