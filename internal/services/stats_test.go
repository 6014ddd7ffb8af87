package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.Equal(t, 0.0, mean([]float64{}))
	assert.Equal(t, 2.0, mean([]float64{1, 2, 3}))
	assert.Equal(t, -1.5, mean([]float64{-1, -2}))
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, stdDev(nil))
	assert.Equal(t, 0.0, stdDev([]float64{42}))
	// Population stddev of {2, 4, 4, 4, 5, 5, 7, 9} is exactly 2
	assert.InDelta(t, 2.0, stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.Equal(t, 0.0, stdDev([]float64{3, 3, 3}))
}

func TestPearsonCorrelation(t *testing.T) {
	t.Run("perfect positive", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4}
		ys := []float64{2, 4, 6, 8}
		assert.InDelta(t, 1.0, pearsonCorrelation(xs, ys), 1e-9)
	})

	t.Run("perfect negative", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4}
		ys := []float64{8, 6, 4, 2}
		assert.InDelta(t, -1.0, pearsonCorrelation(xs, ys), 1e-9)
	})

	t.Run("zero variance returns zero", func(t *testing.T) {
		flat := []float64{5, 5, 5, 5}
		moving := []float64{1, 2, 3, 4}
		assert.Equal(t, 0.0, pearsonCorrelation(flat, moving))
		assert.Equal(t, 0.0, pearsonCorrelation(moving, flat))
		assert.Equal(t, 0.0, pearsonCorrelation(flat, flat))
	})

	t.Run("mismatched or short series return zero", func(t *testing.T) {
		assert.Equal(t, 0.0, pearsonCorrelation([]float64{1, 2}, []float64{1}))
		assert.Equal(t, 0.0, pearsonCorrelation([]float64{1}, []float64{1}))
		assert.Equal(t, 0.0, pearsonCorrelation(nil, nil))
	})

	t.Run("result stays within bounds", func(t *testing.T) {
		xs := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
		ys := []float64{0.11, 0.19, 0.31, 0.41, 0.52}
		r := pearsonCorrelation(xs, ys)
		assert.GreaterOrEqual(t, r, -1.0)
		assert.LessOrEqual(t, r, 1.0)
	})
}

func TestTrendSignificance(t *testing.T) {
	tests := []struct {
		name   string
		change float64
		base   float64
		want   float64
	}{
		{"no change on zero base", 0, 0, 0},
		{"any change on zero base is fully significant", 5, 0, 1},
		{"negative change on zero base", -2, 0, 1},
		{"small relative change", 1, 10, 0.1},
		{"negative change uses magnitude", -2, 10, 0.2},
		{"large change capped at one", 50, 10, 1},
		{"negative base uses magnitude", 5, -10, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, trendSignificance(tt.change, tt.base), 1e-9)
		})
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		base  float64
		want  models.TrendDirection
	}{
		{"unchanged is stable", 10, 10, models.TrendStable},
		{"tiny move is stable", 10.05, 10, models.TrendStable},
		{"clear rise", 12, 10, models.TrendUp},
		{"clear fall", 8, 10, models.TrendDown},
		{"just outside the band rises", 10.2, 10, models.TrendUp},
		{"just outside the band falls", 9.8, 10, models.TrendDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTrend(tt.value, tt.base))
		})
	}
}

func TestClampFloat(t *testing.T) {
	assert.Equal(t, 0.5, clampFloat(0.5, 0, 1))
	assert.Equal(t, 0.0, clampFloat(-3, 0, 1))
	assert.Equal(t, 1.0, clampFloat(7, 0, 1))
	assert.Equal(t, 0.0, clamp01(-0.1))
	assert.Equal(t, 1.0, clamp01(1.1))
}
