package models

import (
	"time"
)

// ModelType identifies the category of model that produced an output
type ModelType string

const (
	ModelTypeStatistical ModelType = "statistical"
	ModelTypeML          ModelType = "ml"
	ModelTypeSentiment   ModelType = "sentiment"
	ModelTypeMarket      ModelType = "market"
	ModelTypeAnalysis    ModelType = "analysis"
)

// ModelOutput is one model's scored opinion for a prediction request
type ModelOutput struct {
	Type       ModelType           `json:"type"`
	Score      float64             `json:"score"`
	Confidence float64             `json:"confidence"`
	Features   map[string]float64  `json:"features,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
	Metadata   ModelOutputMetadata `json:"metadata"`
}

// ModelOutputMetadata carries signal-health hints used for quality scoring
type ModelOutputMetadata struct {
	SignalStrength float64 `json:"signal_strength"`
	LatencyMS      float64 `json:"latency_ms"`
}
