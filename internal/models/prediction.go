package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel bands a prediction's risk score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskProfile is a caller-selected stake/aggression tier, looked up by Type
type RiskProfile struct {
	Type       string          `json:"type"`
	Multiplier float64         `json:"multiplier"`
	MaxStake   decimal.Decimal `json:"max_stake"`
}

// PayoutRange bounds the value of a prediction; Min <= Expected <= Max always holds
type PayoutRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Expected float64 `json:"expected"`
}

// ModelContribution records how one model output entered the ensemble
type ModelContribution struct {
	ModelType  ModelType `json:"model_type"`
	Weight     float64   `json:"weight"`
	Confidence float64   `json:"confidence"`
	Score      float64   `json:"score"`
}

// FeatureImpact is one feature's aggregated influence on the final score
type FeatureImpact struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Impact float64 `json:"impact"`
}

// PredictionMetadata carries the audit trail and quality meta-metrics
type PredictionMetadata struct {
	ProcessingTimeMS float64  `json:"processing_time_ms"`
	DataFreshness    float64  `json:"data_freshness"`
	SignalQuality    float64  `json:"signal_quality"`
	DecisionPath     []string `json:"decision_path"`
}

// FinalPrediction is the risk-adjusted ensemble result; immutable once built
type FinalPrediction struct {
	ID                 string              `json:"id" db:"id"`
	EntityID           string              `json:"entity_id,omitempty" db:"entity_id"`
	FinalScore         float64             `json:"final_score" db:"final_score"`
	Confidence         float64             `json:"confidence" db:"confidence"`
	RiskLevel          RiskLevel           `json:"risk_level" db:"risk_level"`
	RiskProfile        string              `json:"risk_profile" db:"risk_profile"`
	IsSureOdds         bool                `json:"is_sure_odds" db:"is_sure_odds"`
	PayoutRange        PayoutRange         `json:"payout_range"`
	ModelContributions []ModelContribution `json:"model_contributions"`
	TopFeatures        []FeatureImpact     `json:"top_features"`
	SupportingFeatures []FeatureImpact     `json:"supporting_features"`
	Metadata           PredictionMetadata  `json:"metadata"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

// FeatureExplanation is one feature's SHAP-style attribution
type FeatureExplanation struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	ZScore     float64 `json:"z_score"`
	Impact     float64 `json:"impact"`
	Confidence float64 `json:"confidence"`
}

// PredictionExplanation attributes a prediction to its input features
type PredictionExplanation struct {
	PredictionID string               `json:"prediction_id"`
	ModelType    ModelType            `json:"model_type"`
	Features     []FeatureExplanation `json:"features"`
	Confidence   float64              `json:"confidence"`
	GeneratedAt  time.Time            `json:"generated_at"`
}
