package services

import (
	"math"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

// trendStabilityBand is the half-width around the two-point mean inside which
// a metric counts as stable rather than up or down.
const trendStabilityBand = 0.05

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev returns the population standard deviation of values, 0 for fewer
// than two points.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// pearsonCorrelation returns the correlation of two paired series, clamped to
// [-1, 1]. Mismatched lengths, fewer than two pairs, or zero variance in
// either series all yield 0 rather than NaN.
func pearsonCorrelation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}

	n := float64(len(xs))
	meanX := mean(xs)
	meanY := mean(ys)

	var covXY, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}

	r := (covXY / n) / (math.Sqrt(varX/n) * math.Sqrt(varY/n))
	return clampFloat(r, -1, 1)
}

// trendSignificance scores how material a change is relative to its base,
// capped at 1. A zero base is fully significant unless nothing moved.
func trendSignificance(change, base float64) float64 {
	if base == 0 {
		if change == 0 {
			return 0
		}
		return 1
	}
	return math.Min(1, math.Abs(change/base))
}

// classifyTrend labels the movement from base to value. Anything within
// trendStabilityBand of the two-point mean counts as stable.
func classifyTrend(value, base float64) models.TrendDirection {
	midpoint := (value + base) / 2
	if math.Abs(value-midpoint) < trendStabilityBand {
		return models.TrendStable
	}
	if value > base {
		return models.TrendUp
	}
	return models.TrendDown
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}
