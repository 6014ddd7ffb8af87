package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
)

// CacheAnalyticsProvider defines the cache analytics operations the handler
// needs, so tests can substitute a fake.
type CacheAnalyticsProvider interface {
	GetStats(category string) cache.CacheStats
	GetAllStats() map[string]cache.CacheStats
	GetMetrics(ctx context.Context) (*cache.CacheMetrics, error)
	ResetStats()
}

// CacheHandler exposes cache hit/miss analytics and Redis-level metrics
type CacheHandler struct {
	analytics CacheAnalyticsProvider
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(analytics CacheAnalyticsProvider) *CacheHandler {
	return &CacheHandler{
		analytics: analytics,
	}
}

// GetCacheStats returns cache statistics for all categories
// @Summary Get cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]cache.CacheStats
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.analytics.GetAllStats())
}

// GetCacheStatsByCategory returns cache statistics for one category
// @Summary Get cache statistics by category
// @Tags cache
// @Param category path string true "Cache category (e.g. snapshot, source)"
// @Produce json
// @Success 200 {object} cache.CacheStats
// @Router /api/v1/cache/stats/{category} [get]
func (h *CacheHandler) GetCacheStatsByCategory(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category parameter is required"})
		return
	}

	c.JSON(http.StatusOK, h.analytics.GetStats(category))
}

// GetCacheMetrics returns hit/miss stats together with Redis server info
// @Summary Get comprehensive cache metrics
// @Tags cache
// @Produce json
// @Success 200 {object} cache.CacheMetrics
// @Router /api/v1/cache/metrics [get]
func (h *CacheHandler) GetCacheMetrics(c *gin.Context) {
	metrics, err := h.analytics.GetMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get cache metrics: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// ResetCacheStats zeroes all hit/miss counters
// @Summary Reset cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/cache/stats/reset [post]
func (h *CacheHandler) ResetCacheStats(c *gin.Context) {
	h.analytics.ResetStats()
	c.JSON(http.StatusOK, gin.H{"message": "cache statistics reset"})
}
