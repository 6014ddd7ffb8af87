package models

import (
	"time"
)

// PredictionFactor is one named influence on a metric prediction
type PredictionFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
	Weight float64 `json:"weight"`
}

// MetricPrediction is the analysis engine's estimate for one tracked metric
type MetricPrediction struct {
	Metric     string             `json:"metric"`
	Predicted  float64            `json:"predicted"`
	Confidence float64            `json:"confidence"`
	Factors    []PredictionFactor `json:"factors"`
}

// RiskFlag marks one identified risk for an entity, banded by impact
type RiskFlag struct {
	Type   string    `json:"type"`
	Level  RiskLevel `json:"level"`
	Impact float64   `json:"impact"`
	Detail string    `json:"detail,omitempty"`
}

// MetaAnalysis scores how trustworthy the analysis itself is, per dimension
type MetaAnalysis struct {
	DataQuality         float64 `json:"data_quality"`
	PredictionStability float64 `json:"prediction_stability"`
	MarketEfficiency    float64 `json:"market_efficiency"`
	SentimentAlignment  float64 `json:"sentiment_alignment"`
}

// AnalysisResult is the per-entity output of the analysis engine
type AnalysisResult struct {
	EntityID          string                      `json:"entity_id"`
	MetricPredictions map[string]MetricPrediction `json:"metric_predictions"`
	Trends            map[string]TrendData        `json:"trends"`
	RiskFlags         []RiskFlag                  `json:"risk_flags"`
	Meta              MetaAnalysis                `json:"meta"`
	GeneratedAt       time.Time                   `json:"generated_at"`
}
