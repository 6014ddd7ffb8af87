package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
)

// MockCacheAnalytics is a mock implementation of CacheAnalyticsProvider
type MockCacheAnalytics struct {
	mock.Mock
}

func (m *MockCacheAnalytics) GetStats(category string) cache.CacheStats {
	args := m.Called(category)
	return args.Get(0).(cache.CacheStats)
}

func (m *MockCacheAnalytics) GetAllStats() map[string]cache.CacheStats {
	args := m.Called()
	return args.Get(0).(map[string]cache.CacheStats)
}

func (m *MockCacheAnalytics) GetMetrics(ctx context.Context) (*cache.CacheMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.CacheMetrics), args.Error(1)
}

func (m *MockCacheAnalytics) ResetStats() {
	m.Called()
}

func TestNewCacheHandler(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	handler := NewCacheHandler(mockAnalytics)

	assert.NotNil(t, handler)
}

func TestCacheHandler_GetCacheStats(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	mockAnalytics.On("GetAllStats").Return(map[string]cache.CacheStats{
		"snapshot": {
			Hits:        100,
			Misses:      20,
			HitRate:     100.0 / 120.0,
			TotalOps:    120,
			LastUpdated: time.Now(),
		},
	})

	handler := NewCacheHandler(mockAnalytics)

	w, response := serveJSON(t, "GET", "/cache/stats", func(r *gin.Engine) {
		r.GET("/cache/stats", handler.GetCacheStats)
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	snapshot := response["snapshot"].(map[string]interface{})
	assert.Equal(t, float64(100), snapshot["hits"])
	assert.Equal(t, float64(20), snapshot["misses"])
	assert.Equal(t, float64(120), snapshot["total_ops"])

	mockAnalytics.AssertExpectations(t)
}

func TestCacheHandler_GetCacheStatsByCategory(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	mockAnalytics.On("GetStats", "source").Return(cache.CacheStats{
		Hits:     7,
		Misses:   3,
		HitRate:  0.7,
		TotalOps: 10,
	})

	handler := NewCacheHandler(mockAnalytics)

	w, response := serveJSON(t, "GET", "/cache/stats/source", func(r *gin.Engine) {
		r.GET("/cache/stats/:category", handler.GetCacheStatsByCategory)
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), response["hits"])
	assert.Equal(t, 0.7, response["hit_rate"])

	mockAnalytics.AssertExpectations(t)
}

func TestCacheHandler_GetCacheMetrics(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	mockAnalytics.On("GetMetrics", mock.Anything).Return(&cache.CacheMetrics{
		Overall:  cache.CacheStats{Hits: 5, Misses: 5, HitRate: 0.5, TotalOps: 10},
		KeyCount: 42,
	}, nil)

	handler := NewCacheHandler(mockAnalytics)

	w, response := serveJSON(t, "GET", "/cache/metrics", func(r *gin.Engine) {
		r.GET("/cache/metrics", handler.GetCacheMetrics)
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), response["key_count"])

	overall := response["overall"].(map[string]interface{})
	assert.Equal(t, float64(5), overall["hits"])

	mockAnalytics.AssertExpectations(t)
}

func TestCacheHandler_GetCacheMetricsError(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	mockAnalytics.On("GetMetrics", mock.Anything).Return(nil, assert.AnError)

	handler := NewCacheHandler(mockAnalytics)

	w, response := serveJSON(t, "GET", "/cache/metrics", func(r *gin.Engine) {
		r.GET("/cache/metrics", handler.GetCacheMetrics)
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, response["error"], "failed to get cache metrics")

	mockAnalytics.AssertExpectations(t)
}

func TestCacheHandler_ResetCacheStats(t *testing.T) {
	mockAnalytics := &MockCacheAnalytics{}
	mockAnalytics.On("ResetStats").Return()

	handler := NewCacheHandler(mockAnalytics)

	w, response := serveJSON(t, "POST", "/cache/stats/reset", func(r *gin.Engine) {
		r.POST("/cache/stats/reset", handler.ResetCacheStats)
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cache statistics reset", response["message"])

	mockAnalytics.AssertExpectations(t)
}
