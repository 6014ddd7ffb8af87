package services

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

// Blend weights for the overall explanation confidence
const (
	explainWeightConsistency = 0.3
	explainWeightFeatureConf = 0.3
	explainWeightSignAgree   = 0.4
)

// zScoreFloor is the distance, in standard deviations, at which a feature's
// attribution confidence reaches zero.
const zScoreFloor = 3.0

// featureStats tracks one feature's running distribution using Welford's
// algorithm, so z-scores never need the raw history.
type featureStats struct {
	count int64
	mean  float64
	m2    float64
}

func (s *featureStats) observe(value float64) {
	s.count++
	delta := value - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (value - s.mean)
}

func (s *featureStats) stdDev() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count))
}

// ExplainabilityEngine produces SHAP-style feature attributions. Each
// feature's impact is its configured importance scaled by how unusual the
// observed value is against the feature's running distribution.
type ExplainabilityEngine struct {
	logger *logrus.Logger

	mu         sync.Mutex
	importance map[string]float64
	stats      map[string]*featureStats
}

// NewExplainabilityEngine creates an engine with the configured feature
// importance table. Features without a configured importance default to 1.
func NewExplainabilityEngine(importance map[string]float64, logger *logrus.Logger) *ExplainabilityEngine {
	table := make(map[string]float64, len(importance))
	for name, value := range importance {
		table[name] = value
	}
	return &ExplainabilityEngine{
		logger:     logger,
		importance: table,
		stats:      make(map[string]*featureStats),
	}
}

// Observe folds the outputs' feature values into the running distributions.
// The prediction engine calls this once per generated prediction.
func (e *ExplainabilityEngine) Observe(outputs []models.ModelOutput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, output := range outputs {
		for name, value := range output.Features {
			st, ok := e.stats[name]
			if !ok {
				st = &featureStats{}
				e.stats[name] = st
			}
			st.observe(value)
		}
	}
}

// ExplainPrediction attributes the prediction to the output's features. A
// feature never seen before scores a zero z-score, so cold starts produce
// neutral attributions rather than noise.
func (e *ExplainabilityEngine) ExplainPrediction(prediction *models.FinalPrediction, output models.ModelOutput) *models.PredictionExplanation {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(output.Features))
	for name := range output.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	features := make([]models.FeatureExplanation, 0, len(names))
	var impactSum, confSum float64
	positive, negative := 0, 0
	for _, name := range names {
		value := output.Features[name]

		z := 0.0
		if st, ok := e.stats[name]; ok {
			if sd := st.stdDev(); sd > 0 {
				z = (value - st.mean) / sd
			}
		}
		impact := e.importanceFor(name) * z
		confidence := math.Max(0, 1-math.Abs(z)/zScoreFloor)

		features = append(features, models.FeatureExplanation{
			Name:       name,
			Value:      value,
			ZScore:     z,
			Impact:     impact,
			Confidence: confidence,
		})
		impactSum += impact
		confSum += confidence
		if impact > 0 {
			positive++
		} else if impact < 0 {
			negative++
		}
	}

	explanation := &models.PredictionExplanation{
		PredictionID: prediction.ID,
		ModelType:    output.Type,
		Features:     features,
		Confidence:   explanationConfidence(features, impactSum, confSum, positive, negative, prediction.FinalScore),
		GeneratedAt:  time.Now(),
	}

	e.logger.WithFields(logrus.Fields{
		"prediction_id": prediction.ID,
		"model_type":    string(output.Type),
		"features":      len(features),
		"confidence":    explanation.Confidence,
	}).Debug("Generated prediction explanation")

	return explanation
}

func (e *ExplainabilityEngine) importanceFor(name string) float64 {
	if importance, ok := e.importance[name]; ok {
		return importance
	}
	return 1.0
}

// explanationConfidence blends directional consistency, mean feature
// confidence, and agreement between the net impact's sign and the final
// score's sign.
func explanationConfidence(features []models.FeatureExplanation, impactSum, confSum float64, positive, negative int, finalScore float64) float64 {
	if len(features) == 0 {
		return 0
	}

	// All-zero impacts carry no disagreement, so consistency is perfect
	consistency := 1.0
	if positive+negative > 0 {
		consistency = float64(max(positive, negative)) / float64(positive+negative)
	}

	meanFeatureConf := confSum / float64(len(features))

	signAgreement := 0.0
	if (impactSum >= 0) == (finalScore >= 0) {
		signAgreement = 1.0
	}

	return explainWeightConsistency*consistency +
		explainWeightFeatureConf*meanFeatureConf +
		explainWeightSignAgree*signAgreement
}
