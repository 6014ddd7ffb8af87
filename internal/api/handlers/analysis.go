package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itzcole03/A1forBolt-sub001/internal/services"
)

// AnalysisHandler serves per-entity analysis from the analysis engine
type AnalysisHandler struct {
	engine *services.AnalysisEngine
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(engine *services.AnalysisEngine) *AnalysisHandler {
	return &AnalysisHandler{
		engine: engine,
	}
}

// ListEntities returns the entities with accumulated metric history
func (h *AnalysisHandler) ListEntities(c *gin.Context) {
	entities := h.engine.TrackedEntities()
	c.JSON(http.StatusOK, gin.H{
		"entities": entities,
		"count":    len(entities),
	})
}

// GetEntityAnalysis runs the full analysis for one entity. Before the first
// snapshot lands the whole endpoint is unavailable; afterwards unknown
// entities are a plain 404.
func (h *AnalysisHandler) GetEntityAnalysis(c *gin.Context) {
	entityID := c.Param("entityId")

	result, err := h.engine.AnalyzeEntity(c.Request.Context(), entityID)
	if err != nil {
		if errors.Is(err, services.ErrNoIntegratedData) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
