package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/database"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

const (
	defaultRiskProfile = "moderate"
	defaultModelName   = "ensemble"

	defaultListLimit = 20
	maxListLimit     = 100

	persistAttempts = 3
	persistBackoff  = 100 * time.Millisecond
	persistTimeout  = 5 * time.Second
)

// PredictionStore persists predictions, outcomes and alerts. Implemented by
// database.PredictionRepository; handlers degrade gracefully when no store
// is configured.
type PredictionStore interface {
	SavePrediction(ctx context.Context, prediction *models.FinalPrediction) error
	GetPrediction(ctx context.Context, id string) (*models.FinalPrediction, error)
	ListRecentPredictions(ctx context.Context, limit int) ([]models.FinalPrediction, error)
	SaveOutcome(ctx context.Context, outcome *models.Outcome) error
	SaveAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, modelName string, limit int) ([]models.Alert, error)
}

// PredictionHandler runs the ensemble engine and serves stored predictions
type PredictionHandler struct {
	engine  *services.PredictionEngine
	monitor *services.PerformanceMonitor
	store   PredictionStore
	logger  *logrus.Logger
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(engine *services.PredictionEngine, monitor *services.PerformanceMonitor, store PredictionStore, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{
		engine:  engine,
		monitor: monitor,
		store:   store,
		logger:  logger,
	}
}

// GeneratePredictionRequest carries model outputs for one ensemble run
type GeneratePredictionRequest struct {
	ModelOutputs []models.ModelOutput `json:"model_outputs" binding:"required"`
	RiskProfile  string               `json:"risk_profile"`
	Context      map[string]string    `json:"context"`
}

// GeneratePredictionResponse pairs the prediction with the action derived
// from its risk band.
type GeneratePredictionResponse struct {
	Prediction     *models.FinalPrediction `json:"prediction"`
	Recommendation string                  `json:"recommendation"`
}

// GeneratePrediction combines the posted model outputs into a final
// prediction, tracks it for performance accounting and persists it in the
// background.
func (h *PredictionHandler) GeneratePrediction(c *gin.Context) {
	var req GeneratePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	profile := req.RiskProfile
	if profile == "" {
		profile = defaultRiskProfile
	}

	prediction, err := h.engine.GeneratePrediction(c.Request.Context(), req.ModelOutputs, profile, req.Context)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrEmptyModelOutputs) ||
			errors.Is(err, services.ErrDuplicateModelType) ||
			errors.Is(err, services.ErrUnknownRiskProfile) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	modelName := req.Context["model_name"]
	if modelName == "" {
		modelName = defaultModelName
	}
	recommendation := recommendationFor(prediction)
	h.monitor.TrackPrediction(modelName, prediction, recommendation)
	go h.persistPrediction(prediction)

	c.JSON(http.StatusCreated, GeneratePredictionResponse{
		Prediction:     prediction,
		Recommendation: recommendation,
	})
}

// recommendationFor maps a prediction's risk band to a betting action
func recommendationFor(prediction *models.FinalPrediction) string {
	if prediction.IsSureOdds {
		return "prime_play"
	}
	switch prediction.RiskLevel {
	case models.RiskLevelLow:
		return "value_play"
	case models.RiskLevelMedium:
		return "monitor"
	default:
		return "avoid"
	}
}

// persistPrediction saves a prediction with a few retries. Runs on its own
// goroutine so API latency stays independent of the database.
func (h *PredictionHandler) persistPrediction(prediction *models.FinalPrediction) {
	if h.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = h.store.SavePrediction(ctx, prediction); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * persistBackoff)
	}
	h.logger.WithError(err).WithField("prediction_id", prediction.ID).Error("Failed to persist prediction")
}

// ValidatePrediction checks a prediction's structural invariants
func (h *PredictionHandler) ValidatePrediction(c *gin.Context) {
	var prediction models.FinalPrediction
	if err := c.ShouldBindJSON(&prediction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.engine.ValidatePrediction(&prediction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "prediction_id": prediction.ID})
}

// ExplainPredictionRequest pairs a prediction with the model output to
// attribute it against.
type ExplainPredictionRequest struct {
	Prediction  models.FinalPrediction `json:"prediction" binding:"required"`
	ModelOutput models.ModelOutput     `json:"model_output" binding:"required"`
}

// ExplainPrediction produces a per-feature attribution for a prediction
func (h *PredictionHandler) ExplainPrediction(c *gin.Context) {
	var req ExplainPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	explanation := h.engine.ExplainPrediction(&req.Prediction, req.ModelOutput)
	c.JSON(http.StatusOK, explanation)
}

// GetPrediction loads one stored prediction by id
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction storage not configured"})
		return
	}

	id := c.Param("id")
	prediction, err := h.store.GetPrediction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrPredictionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
			return
		}
		h.logger.WithError(err).WithField("prediction_id", id).Error("Failed to load prediction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prediction"})
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// ListRecentPredictions returns the most recently stored predictions. The
// limit query parameter defaults to 20 and caps at 100.
func (h *PredictionHandler) ListRecentPredictions(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction storage not configured"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	predictions, err := h.store.ListRecentPredictions(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": predictions,
		"count":       len(predictions),
	})
}

// GetConfig reports the engine's live tuning parameters
func (h *PredictionHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model_weights":       h.engine.ModelWeights(),
		"risk_profiles":       h.engine.RiskProfiles(),
		"sure_odds_threshold": h.engine.SureOddsThreshold(),
	})
}

// UpdateModelWeightsRequest carries a full replacement weight table
type UpdateModelWeightsRequest struct {
	Weights map[string]float64 `json:"weights" binding:"required"`
}

// UpdateModelWeights hot-swaps the ensemble weight table
func (h *PredictionHandler) UpdateModelWeights(c *gin.Context) {
	var req UpdateModelWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.engine.UpdateModelWeights(req.Weights); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"model_weights": h.engine.ModelWeights()})
}

// UpdateRiskProfilesRequest carries a full replacement risk profile table
type UpdateRiskProfilesRequest struct {
	Profiles map[string]config.RiskProfileConfig `json:"profiles" binding:"required"`
}

// UpdateRiskProfiles hot-swaps the risk profile table
func (h *PredictionHandler) UpdateRiskProfiles(c *gin.Context) {
	var req UpdateRiskProfilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.engine.UpdateRiskProfiles(req.Profiles); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"risk_profiles": h.engine.RiskProfiles()})
}

// UpdateSureOddsThresholdRequest carries the new sure-odds gate. A pointer
// keeps an explicit zero distinguishable from a missing field.
type UpdateSureOddsThresholdRequest struct {
	Threshold *float64 `json:"threshold" binding:"required"`
}

// UpdateSureOddsThreshold hot-swaps the sure-odds confidence gate
func (h *PredictionHandler) UpdateSureOddsThreshold(c *gin.Context) {
	var req UpdateSureOddsThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.engine.UpdateSureOddsThreshold(*req.Threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sure_odds_threshold": h.engine.SureOddsThreshold()})
}
