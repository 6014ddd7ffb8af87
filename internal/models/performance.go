package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertSeverity ranks how urgent a performance alert is
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// ThresholdDirection states which side of the threshold triggers an alert
type ThresholdDirection string

const (
	ThresholdBelow ThresholdDirection = "below"
	ThresholdAbove ThresholdDirection = "above"
)

// Metric keys used by the built-in threshold table and alert records
const (
	MetricROI         = "roi"
	MetricWinRate     = "win_rate"
	MetricMaxDrawdown = "max_drawdown"
	MetricCalibration = "calibration_score"
	MetricSharpe      = "sharpe_ratio"
	MetricKelly       = "kelly_fraction"
)

// ThresholdRule triggers an alert when a metric crosses Threshold in Direction
type ThresholdRule struct {
	Metric    string             `json:"metric"`
	Direction ThresholdDirection `json:"direction"`
	Threshold float64            `json:"threshold"`
	Severity  AlertSeverity      `json:"severity"`
}

// Alert records one threshold breach; never mutated after creation
type Alert struct {
	ID        string        `json:"id"`
	ModelName string        `json:"model_name"`
	Metric    string        `json:"metric"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// AlertFilter narrows GetAlerts results; zero fields match everything
type AlertFilter struct {
	ModelName string        `json:"model_name,omitempty"`
	Severity  AlertSeverity `json:"severity,omitempty"`
	Since     time.Time     `json:"since"`
}

// Outcome is one settled bet recorded against a model's predictions
type Outcome struct {
	ID         string          `json:"id" db:"id"`
	ModelName  string          `json:"model_name" db:"model_name"`
	Stake      decimal.Decimal `json:"stake" db:"stake"`
	Payout     decimal.Decimal `json:"payout" db:"payout"`
	Odds       float64         `json:"odds" db:"odds"`
	ProfitLoss decimal.Decimal `json:"profit_loss" db:"profit_loss"`
	Won        bool            `json:"won" db:"won"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}

// ModelPerformanceMetrics is the rolling accumulator for one model name
type ModelPerformanceMetrics struct {
	ModelName        string          `json:"model_name"`
	Predictions      int64           `json:"predictions"`
	Outcomes         int64           `json:"outcomes"`
	Wins             int64           `json:"wins"`
	Losses           int64           `json:"losses"`
	TotalStake       decimal.Decimal `json:"total_stake"`
	TotalPayout      decimal.Decimal `json:"total_payout"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GrossLoss        decimal.Decimal `json:"gross_loss"`
	AvgConfidence    float64         `json:"avg_confidence"`
	AvgOdds          float64         `json:"avg_odds"`
	ROI              float64         `json:"roi"`
	WinRate          float64         `json:"win_rate"`
	ProfitFactor     float64         `json:"profit_factor"`
	SharpeRatio      float64         `json:"sharpe_ratio"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	KellyFraction    float64         `json:"kelly_fraction"`
	ExpectedValue    float64         `json:"expected_value"`
	CalibrationScore float64         `json:"calibration_score"`
	LastPrediction   time.Time       `json:"last_prediction"`
	LastOutcome      time.Time       `json:"last_outcome"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PerformanceSnapshot is one point in a model's capped metric history
type PerformanceSnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	ROI          float64   `json:"roi"`
	WinRate      float64   `json:"win_rate"`
	ProfitFactor float64   `json:"profit_factor"`
	Outcomes     int64     `json:"outcomes"`
}
