package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/metrics"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/telemetry"
)

// Validation errors returned by GeneratePrediction. Callers distinguish them
// with errors.Is; everything else coming out of the engine is a computation
// fallback, not an error.
var (
	ErrEmptyModelOutputs  = errors.New("no model outputs provided")
	ErrDuplicateModelType = errors.New("duplicate model type")
	ErrUnknownRiskProfile = errors.New("unknown risk profile")
)

// Risk score bands for classifying a prediction
const (
	riskBandLow    = 0.3
	riskBandMedium = 0.6
)

// payoutBandWidth is the relative half-width of the payout range around the
// final score.
const payoutBandWidth = 0.2

// staleAfter is the age at which a model output's freshness reaches zero
const staleAfter = 24 * time.Hour

// PredictionEngine combines model outputs into one risk-adjusted final
// prediction. Weights, risk profiles, and the sure-odds threshold can be
// swapped at runtime; updates only affect predictions generated afterwards.
type PredictionEngine struct {
	logger   *logrus.Logger
	recorder *metrics.Recorder
	explain  *ExplainabilityEngine

	mu                sync.RWMutex
	modelWeights      map[models.ModelType]float64
	riskProfiles      map[string]models.RiskProfile
	sureOddsThreshold float64
	maxFeatures       int
}

// NewPredictionEngine seeds the engine from configuration
func NewPredictionEngine(cfg *config.Config, logger *logrus.Logger, recorder *metrics.Recorder) *PredictionEngine {
	weights := make(map[models.ModelType]float64, len(cfg.Prediction.ModelWeights))
	for name, weight := range cfg.Prediction.ModelWeights {
		weights[models.ModelType(name)] = weight
	}

	profiles := make(map[string]models.RiskProfile, len(cfg.Prediction.RiskProfiles))
	for name, profile := range cfg.Prediction.RiskProfiles {
		profiles[name] = models.RiskProfile{
			Type:       name,
			Multiplier: profile.Multiplier,
			MaxStake:   decimal.NewFromFloat(profile.MaxStake),
		}
	}

	maxFeatures := cfg.Prediction.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = 5
	}

	return &PredictionEngine{
		logger:            logger,
		recorder:          recorder,
		explain:           NewExplainabilityEngine(cfg.Prediction.FeatureImportance, logger),
		modelWeights:      weights,
		riskProfiles:      profiles,
		sureOddsThreshold: cfg.Prediction.SureOddsThreshold,
		maxFeatures:       maxFeatures,
	}
}

// GeneratePrediction validates the model outputs, aggregates them under the
// named risk profile, and returns the final prediction with its full audit
// trail. Validation failures return wrapped sentinel errors; aggregation
// edge cases fall back to zero values and are noted in the decision path.
func (e *PredictionEngine) GeneratePrediction(ctx context.Context, outputs []models.ModelOutput, profileType string, reqContext map[string]string) (*models.FinalPrediction, error) {
	_, span := telemetry.Tracer("prediction-engine").Start(ctx, "engine.generate_prediction")
	defer span.End()
	start := time.Now()

	if err := e.validateOutputs(outputs); err != nil {
		e.recordFailure(err)
		return nil, err
	}

	e.mu.RLock()
	weights := e.modelWeights
	profile, profileKnown := e.riskProfiles[profileType]
	sureOdds := e.sureOddsThreshold
	maxFeatures := e.maxFeatures
	e.mu.RUnlock()

	if !profileKnown {
		err := fmt.Errorf("risk profile %q: %w", profileType, ErrUnknownRiskProfile)
		e.recordFailure(err)
		return nil, err
	}

	path := []string{fmt.Sprintf("validated %d model outputs", len(outputs))}

	var (
		contributions []models.ModelContribution
		scoreSum      float64
		confSum       float64
		weightSum     float64
	)
	accumulators := make(map[string]*featureAccumulator)
	for _, output := range outputs {
		weight, weighted := weights[output.Type]
		if !weighted || weight == 0 {
			path = append(path, fmt.Sprintf("skipped unweighted model type %s", output.Type))
			e.logger.WithField("model_type", string(output.Type)).Debug("Skipping model output with no configured weight")
			continue
		}

		contributions = append(contributions, models.ModelContribution{
			ModelType:  output.Type,
			Weight:     weight,
			Confidence: output.Confidence,
			Score:      output.Score,
		})
		scoreSum += output.Score * weight
		confSum += output.Confidence
		weightSum += weight

		for name, value := range output.Features {
			acc, ok := accumulators[name]
			if !ok {
				acc = &featureAccumulator{}
				accumulators[name] = acc
			}
			acc.count++
			acc.weightSum += weight
			acc.impactSum += value * weight
		}
	}

	var weightedScore, avgConfidence float64
	if weightSum > 0 {
		weightedScore = scoreSum / weightSum
		avgConfidence = confSum / float64(len(contributions))
		path = append(path, fmt.Sprintf("aggregated %d/%d outputs into weighted score %.4f (confidence %.4f)",
			len(contributions), len(outputs), weightedScore, avgConfidence))
	} else {
		// Every output had an unknown type; fall back to a zero prediction
		path = append(path, "no weighted outputs, falling back to zero score")
		e.logger.Warn("Prediction generated with no weighted model outputs")
	}

	riskScore := (1 - avgConfidence) * (1 + math.Abs(weightedScore-0.5))
	riskLevel := classifyRisk(riskScore)
	path = append(path, fmt.Sprintf("risk score %.4f banded %s", riskScore, riskLevel))

	finalScore := weightedScore * avgConfidence * profile.Multiplier
	path = append(path, fmt.Sprintf("applied %s multiplier %.2f for final score %.4f", profile.Type, profile.Multiplier, finalScore))

	isSureOdds := avgConfidence >= sureOdds && len(contributions) > 0
	if isSureOdds {
		path = append(path, fmt.Sprintf("confidence %.4f cleared sure-odds threshold %.2f", avgConfidence, sureOdds))
	}

	topFeatures, supporting := rankFeatures(accumulators, maxFeatures)
	if len(accumulators) > 0 {
		path = append(path, fmt.Sprintf("ranked %d features, kept top %d", len(accumulators), len(topFeatures)))
	}

	prediction := &models.FinalPrediction{
		ID:                 uuid.New().String(),
		EntityID:           reqContext["entity_id"],
		FinalScore:         finalScore,
		Confidence:         avgConfidence,
		RiskLevel:          riskLevel,
		RiskProfile:        profile.Type,
		IsSureOdds:         isSureOdds,
		PayoutRange:        payoutRange(finalScore),
		ModelContributions: contributions,
		TopFeatures:        topFeatures,
		SupportingFeatures: supporting,
		Metadata: models.PredictionMetadata{
			ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
			DataFreshness:    dataFreshness(outputs, time.Now()),
			SignalQuality:    signalQuality(outputs),
			DecisionPath:     path,
		},
		CreatedAt: time.Now(),
	}

	e.explain.Observe(outputs)

	if e.recorder != nil {
		e.recorder.RecordPrediction(string(riskLevel))
	}
	e.logger.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"final_score":   prediction.FinalScore,
		"confidence":    prediction.Confidence,
		"risk_level":    string(prediction.RiskLevel),
		"risk_profile":  prediction.RiskProfile,
		"sure_odds":     prediction.IsSureOdds,
		"models":        len(contributions),
	}).Info("Generated prediction")

	return prediction, nil
}

func (e *PredictionEngine) validateOutputs(outputs []models.ModelOutput) error {
	if len(outputs) == 0 {
		return fmt.Errorf("validate model outputs: %w", ErrEmptyModelOutputs)
	}
	seen := make(map[models.ModelType]bool, len(outputs))
	for _, output := range outputs {
		if seen[output.Type] {
			return fmt.Errorf("model type %s: %w", output.Type, ErrDuplicateModelType)
		}
		seen[output.Type] = true
	}
	return nil
}

func (e *PredictionEngine) recordFailure(err error) {
	if e.recorder == nil {
		return
	}
	switch {
	case errors.Is(err, ErrEmptyModelOutputs):
		e.recorder.RecordPredictionFailure("empty_model_outputs")
	case errors.Is(err, ErrDuplicateModelType):
		e.recorder.RecordPredictionFailure("duplicate_model_type")
	case errors.Is(err, ErrUnknownRiskProfile):
		e.recorder.RecordPredictionFailure("unknown_risk_profile")
	default:
		e.recorder.RecordPredictionFailure("other")
	}
}

// ExplainPrediction attributes a prediction to one model output's features
func (e *PredictionEngine) ExplainPrediction(prediction *models.FinalPrediction, output models.ModelOutput) *models.PredictionExplanation {
	return e.explain.ExplainPrediction(prediction, output)
}

// ValidatePrediction checks a built prediction's structural invariants
// without touching engine state.
func (e *PredictionEngine) ValidatePrediction(prediction *models.FinalPrediction) error {
	if prediction == nil {
		return fmt.Errorf("prediction is nil")
	}
	if prediction.ID == "" {
		return fmt.Errorf("prediction id is empty")
	}
	if prediction.CreatedAt.IsZero() {
		return fmt.Errorf("prediction created_at is unset")
	}
	if math.IsNaN(prediction.FinalScore) || math.IsInf(prediction.FinalScore, 0) {
		return fmt.Errorf("final score %v is not finite", prediction.FinalScore)
	}
	if prediction.Confidence < 0 || prediction.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", prediction.Confidence)
	}
	switch prediction.RiskLevel {
	case models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh:
	default:
		return fmt.Errorf("unknown risk level %q", prediction.RiskLevel)
	}
	pr := prediction.PayoutRange
	if pr.Min > pr.Expected || pr.Expected > pr.Max {
		return fmt.Errorf("payout range violates min <= expected <= max: %+v", pr)
	}
	return nil
}

// UpdateModelWeights replaces the model weight table. Weights must be
// non-negative and at least one must be positive.
func (e *PredictionEngine) UpdateModelWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("model weights must not be empty")
	}
	anyPositive := false
	for name, weight := range weights {
		if weight < 0 {
			return fmt.Errorf("model weight %s must not be negative, got %v", name, weight)
		}
		if weight > 0 {
			anyPositive = true
		}
	}
	if !anyPositive {
		return fmt.Errorf("at least one model weight must be positive")
	}

	next := make(map[models.ModelType]float64, len(weights))
	for name, weight := range weights {
		next[models.ModelType(name)] = weight
	}

	e.mu.Lock()
	e.modelWeights = next
	e.mu.Unlock()

	e.logger.WithField("models", len(next)).Info("Model weights updated")
	return nil
}

// UpdateRiskProfiles replaces the risk profile table
func (e *PredictionEngine) UpdateRiskProfiles(profiles map[string]config.RiskProfileConfig) error {
	if len(profiles) == 0 {
		return fmt.Errorf("risk profiles must not be empty")
	}
	for name, profile := range profiles {
		if profile.Multiplier <= 0 {
			return fmt.Errorf("risk profile %s multiplier must be positive, got %v", name, profile.Multiplier)
		}
		if profile.MaxStake < 0 {
			return fmt.Errorf("risk profile %s max stake must not be negative, got %v", name, profile.MaxStake)
		}
	}

	next := make(map[string]models.RiskProfile, len(profiles))
	for name, profile := range profiles {
		next[name] = models.RiskProfile{
			Type:       name,
			Multiplier: profile.Multiplier,
			MaxStake:   decimal.NewFromFloat(profile.MaxStake),
		}
	}

	e.mu.Lock()
	e.riskProfiles = next
	e.mu.Unlock()

	e.logger.WithField("profiles", len(next)).Info("Risk profiles updated")
	return nil
}

// UpdateSureOddsThreshold replaces the sure-odds confidence threshold
func (e *PredictionEngine) UpdateSureOddsThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("sure odds threshold must be in [0, 1], got %v", threshold)
	}
	e.mu.Lock()
	e.sureOddsThreshold = threshold
	e.mu.Unlock()
	return nil
}

// ModelWeights returns a copy of the current weight table
func (e *PredictionEngine) ModelWeights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.modelWeights))
	for name, weight := range e.modelWeights {
		out[string(name)] = weight
	}
	return out
}

// RiskProfiles returns a copy of the current profile table
func (e *PredictionEngine) RiskProfiles() map[string]models.RiskProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]models.RiskProfile, len(e.riskProfiles))
	for name, profile := range e.riskProfiles {
		out[name] = profile
	}
	return out
}

// SureOddsThreshold returns the current sure-odds confidence threshold
func (e *PredictionEngine) SureOddsThreshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sureOddsThreshold
}

type featureAccumulator struct {
	count     int
	weightSum float64
	impactSum float64
}

// rankFeatures averages each feature's weighted impact across the models
// that reported it, then splits the ranking into top and supporting sets.
func rankFeatures(accumulators map[string]*featureAccumulator, maxFeatures int) (top, supporting []models.FeatureImpact) {
	if len(accumulators) == 0 {
		return nil, nil
	}

	impacts := make([]models.FeatureImpact, 0, len(accumulators))
	for name, acc := range accumulators {
		impacts = append(impacts, models.FeatureImpact{
			Name:   name,
			Weight: acc.weightSum / float64(acc.count),
			Impact: acc.impactSum / float64(acc.count),
		})
	}
	sort.Slice(impacts, func(i, j int) bool {
		ai, aj := math.Abs(impacts[i].Impact), math.Abs(impacts[j].Impact)
		if ai != aj {
			return ai > aj
		}
		return impacts[i].Name < impacts[j].Name
	})

	if len(impacts) <= maxFeatures {
		return impacts, nil
	}
	return impacts[:maxFeatures], impacts[maxFeatures:]
}

func classifyRisk(riskScore float64) models.RiskLevel {
	switch {
	case riskScore < riskBandLow:
		return models.RiskLevelLow
	case riskScore < riskBandMedium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

// payoutRange brackets the final score with a relative band. Min and Max are
// ordered explicitly so the range invariant holds for negative scores too.
func payoutRange(finalScore float64) models.PayoutRange {
	lo := finalScore * (1 - payoutBandWidth)
	hi := finalScore * (1 + payoutBandWidth)
	return models.PayoutRange{
		Min:      math.Min(lo, hi),
		Max:      math.Max(lo, hi),
		Expected: finalScore,
	}
}

// dataFreshness averages linear decay of each output's age over the stale
// window; an output older than the window contributes zero.
func dataFreshness(outputs []models.ModelOutput, now time.Time) float64 {
	if len(outputs) == 0 {
		return 0
	}
	total := 0.0
	for _, output := range outputs {
		age := now.Sub(output.Timestamp)
		total += clamp01(1 - age.Seconds()/staleAfter.Seconds())
	}
	return total / float64(len(outputs))
}

// signalQuality multiplies per-output signal factors so one weak or slow
// signal drags the whole product down.
func signalQuality(outputs []models.ModelOutput) float64 {
	quality := 1.0
	for _, output := range outputs {
		factor := output.Metadata.SignalStrength * (1 - output.Metadata.LatencyMS/1000.0)
		if factor < 0 {
			factor = 0
		}
		quality *= factor
	}
	return clamp01(quality)
}
