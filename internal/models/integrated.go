package models

import (
	"time"
)

// TrendDirection classifies how a metric moved between two snapshots
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// IntegratedData is one merged snapshot of all source sections. A published
// snapshot is immutable; each sync cycle builds a fresh value and swaps it in.
type IntegratedData struct {
	Timestamp    time.Time                   `json:"timestamp"`
	Projections  map[string]EntityProjection `json:"projections"`
	Sentiment    map[string]EntitySentiment  `json:"sentiment"`
	Odds         map[string]MarketOdds       `json:"odds"`
	Injuries     map[string]InjuryReport     `json:"injuries"`
	Trends       map[string]TrendData        `json:"trends"`
	Correlations map[string]float64          `json:"correlations"`
	Unrecognized map[string]any              `json:"unrecognized,omitempty"`
}

// EntityProjection holds merged numeric projections for one subject
type EntityProjection struct {
	Stats       map[string]float64 `json:"stats"`
	Confidence  float64            `json:"confidence"`
	LastUpdated time.Time          `json:"last_updated"`
}

// EntitySentiment holds social sentiment aggregates for one subject
type EntitySentiment struct {
	Score       float64   `json:"score"`
	Volume      int       `json:"volume"`
	Trending    bool      `json:"trending"`
	Keywords    []string  `json:"keywords,omitempty"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"last_updated"`
}

// MarketOdds holds one market's selection prices and recent movement
type MarketOdds struct {
	Markets     map[string]float64 `json:"markets"`
	Movement    OddsMovement       `json:"movement"`
	Confidence  float64            `json:"confidence"`
	LastUpdated time.Time          `json:"last_updated"`
}

// OddsMovement describes price drift since the previous snapshot
type OddsMovement struct {
	Direction TrendDirection `json:"direction"`
	Magnitude float64        `json:"magnitude"`
}

// InjuryReport holds roster/injury status for one subject
type InjuryReport struct {
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	Impact      float64   `json:"impact"`
	Timeline    string    `json:"timeline,omitempty"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"last_updated"`
}

// TrendData is the diff of one scalar metric against the prior snapshot
type TrendData struct {
	Value        float64        `json:"value"`
	Change       float64        `json:"change"`
	Significance float64        `json:"significance"`
	Direction    TrendDirection `json:"direction"`
}

// SourceMetrics tracks rolling reliability for one registered source
type SourceMetrics struct {
	SourceID     string    `json:"source_id"`
	Kind         string    `json:"kind"`
	DisplayName  string    `json:"display_name"`
	FetchCount   int64     `json:"fetch_count"`
	ErrorCount   int64     `json:"error_count"`
	ErrorRate    float64   `json:"error_rate"`
	AvgLatencyMS float64   `json:"avg_latency_ms"`
	DataQuality  float64   `json:"data_quality"`
	LastSuccess  time.Time `json:"last_success"`
	LastError    string    `json:"last_error,omitempty"`
	LastErrorAt  time.Time `json:"last_error_at"`
}
