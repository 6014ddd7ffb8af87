package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/telemetry"
)

// ErrNoIntegratedData is returned while no snapshot has been published yet
var ErrNoIntegratedData = errors.New("no integrated data available yet")

// Injury impact bands for risk flag levels
const (
	injuryBandLow    = 0.3
	injuryBandMedium = 0.7
)

// sentimentVolumeNorm is the mention volume at which volume-derived
// confidence saturates at 1.
const sentimentVolumeNorm = 1000.0

// Factor weights for metric predictions
const (
	factorWeightHistorical = 0.3
	factorWeightForm       = 0.4
	factorWeightSentiment  = 0.3
)

// AnalysisEngine turns integrated snapshots into per-entity analysis:
// metric predictions with contributing factors, trend classification, risk
// flags, and a meta-quality block scoring the analysis itself. It subscribes
// to the hub so each published snapshot extends the per-metric history the
// moving averages run on.
type AnalysisEngine struct {
	logger       *logrus.Logger
	historyLimit int
	formPeriod   int

	mu      sync.RWMutex
	latest  *models.IntegratedData
	history map[string]map[string][]float64
}

// NewAnalysisEngine creates an engine with empty history
func NewAnalysisEngine(cfg *config.Config, logger *logrus.Logger) *AnalysisEngine {
	historyLimit := cfg.Analysis.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}
	formPeriod := cfg.Analysis.MinHistoryForForm
	if formPeriod <= 0 {
		formPeriod = 5
	}
	return &AnalysisEngine{
		logger:       logger,
		historyLimit: historyLimit,
		formPeriod:   formPeriod,
		history:      make(map[string]map[string][]float64),
	}
}

// OnIntegrationComplete stores the snapshot and extends per-metric history.
// Implements IntegrationSubscriber.
func (e *AnalysisEngine) OnIntegrationComplete(event IntegrationEvent) {
	if event.Data == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.latest = event.Data
	for entityID, proj := range event.Data.Projections {
		byMetric, ok := e.history[entityID]
		if !ok {
			byMetric = make(map[string][]float64)
			e.history[entityID] = byMetric
		}
		for metric, value := range proj.Stats {
			series := append(byMetric[metric], value)
			if len(series) > e.historyLimit {
				series = series[len(series)-e.historyLimit:]
			}
			byMetric[metric] = series
		}
	}
}

// AnalyzeEntity produces the full analysis for one entity from the latest
// snapshot. It fails only when no section of the snapshot knows the entity.
func (e *AnalysisEngine) AnalyzeEntity(ctx context.Context, entityID string) (*models.AnalysisResult, error) {
	_, span := telemetry.Tracer("analysis-engine").Start(ctx, "engine.analyze_entity")
	defer span.End()

	e.mu.RLock()
	snapshot := e.latest
	history := e.copyEntityHistory(entityID)
	e.mu.RUnlock()

	if snapshot == nil {
		return nil, ErrNoIntegratedData
	}

	projection, hasProjection := snapshot.Projections[entityID]
	sentiment, hasSentiment := snapshot.Sentiment[entityID]
	injury, hasInjury := snapshot.Injuries[entityID]
	if !hasProjection && !hasSentiment && !hasInjury {
		return nil, fmt.Errorf("no data for entity %s", entityID)
	}

	predictions := make(map[string]models.MetricPrediction)
	trends := make(map[string]models.TrendData)
	if hasProjection {
		for metric, value := range projection.Stats {
			series := history[metric]
			predictions[metric] = e.predictMetric(metric, value, series, sentiment, hasSentiment, projection.Confidence)
			if len(series) >= 2 {
				base := series[len(series)-2]
				change := value - base
				trends[metric] = models.TrendData{
					Value:        value,
					Change:       change,
					Significance: trendSignificance(change, base),
					Direction:    classifyTrend(value, base),
				}
			}
		}
	}

	var riskFlags []models.RiskFlag
	if hasInjury {
		riskFlags = append(riskFlags, models.RiskFlag{
			Type:   "injury",
			Level:  bandInjuryImpact(injury.Impact),
			Impact: injury.Impact,
			Detail: injuryDetail(injury),
		})
	}

	result := &models.AnalysisResult{
		EntityID:          entityID,
		MetricPredictions: predictions,
		Trends:            trends,
		RiskFlags:         riskFlags,
		Meta:              e.metaAnalysis(snapshot, predictions, sentiment, hasSentiment, projection, hasProjection, injury, hasInjury, trends),
		GeneratedAt:       time.Now(),
	}

	e.logger.WithFields(logrus.Fields{
		"entity":       entityID,
		"metrics":      len(predictions),
		"risk_flags":   len(riskFlags),
		"data_quality": result.Meta.DataQuality,
	}).Debug("Analyzed entity")

	return result, nil
}

// TrackedEntities lists the entities with accumulated metric history
func (e *AnalysisEngine) TrackedEntities() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entities := make([]string, 0, len(e.history))
	for entityID := range e.history {
		entities = append(entities, entityID)
	}
	sort.Strings(entities)
	return entities
}

func (e *AnalysisEngine) copyEntityHistory(entityID string) map[string][]float64 {
	byMetric, ok := e.history[entityID]
	if !ok {
		return nil
	}
	out := make(map[string][]float64, len(byMetric))
	for metric, series := range byMetric {
		copied := make([]float64, len(series))
		copy(copied, series)
		out[metric] = copied
	}
	return out
}

// predictMetric adjusts the current projection by the factor stack:
// historical average (SMA), current form (EMA vs. SMA divergence), and a
// sentiment delta scaled by volume-derived confidence.
func (e *AnalysisEngine) predictMetric(metric string, current float64, series []float64, sentiment models.EntitySentiment, hasSentiment bool, baseConfidence float64) models.MetricPrediction {
	var factors []models.PredictionFactor

	if len(series) >= e.formPeriod {
		sma := latestSMA(series, e.formPeriod)
		ema := latestEMA(series, e.formPeriod)
		factors = append(factors,
			models.PredictionFactor{Name: "historical_average", Impact: sma - current, Weight: factorWeightHistorical},
			models.PredictionFactor{Name: "current_form", Impact: ema - sma, Weight: factorWeightForm},
		)
	}

	confidence := baseConfidence
	if hasSentiment {
		volumeConf := math.Min(1, float64(sentiment.Volume)/sentimentVolumeNorm)
		factors = append(factors, models.PredictionFactor{
			Name:   "sentiment",
			Impact: sentiment.Score * volumeConf,
			Weight: factorWeightSentiment,
		})
		confidence = clamp01(confidence + 0.05*sentiment.Score*volumeConf)
	}

	predicted := current
	for _, factor := range factors {
		predicted += factor.Impact * factor.Weight
	}

	sort.Slice(factors, func(i, j int) bool {
		ai := math.Abs(factors[i].Impact * factors[i].Weight)
		aj := math.Abs(factors[j].Impact * factors[j].Weight)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})

	return models.MetricPrediction{
		Metric:     metric,
		Predicted:  predicted,
		Confidence: clamp01(confidence),
		Factors:    factors,
	}
}

// latestSMA returns the most recent simple moving average of the series
func latestSMA(series []float64, period int) float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(series)))
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// latestEMA returns the most recent exponential moving average of the series
func latestEMA(series []float64, period int) float64 {
	ema := trend.NewEmaWithPeriod[float64](period)
	values := helper.ChanToSlice(ema.Compute(helper.SliceToChan(series)))
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func bandInjuryImpact(impact float64) models.RiskLevel {
	switch {
	case impact < injuryBandLow:
		return models.RiskLevelLow
	case impact < injuryBandMedium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

func injuryDetail(injury models.InjuryReport) string {
	if injury.Detail != "" {
		return fmt.Sprintf("%s: %s", injury.Status, injury.Detail)
	}
	return injury.Status
}

// metaAnalysis scores the four quality dimensions of the analysis itself
func (e *AnalysisEngine) metaAnalysis(snapshot *models.IntegratedData, predictions map[string]models.MetricPrediction, sentiment models.EntitySentiment, hasSentiment bool, projection models.EntityProjection, hasProjection bool, injury models.InjuryReport, hasInjury bool, trends map[string]models.TrendData) models.MetaAnalysis {
	now := time.Now()

	projScore := 0.0
	if hasProjection {
		projScore = sectionScore(projection.LastUpdated, projection.Confidence, now)
	}
	sentScore := 0.0
	if hasSentiment {
		sentScore = sectionScore(sentiment.LastUpdated, sentiment.Confidence, now)
	}
	injScore := 0.0
	if hasInjury {
		injScore = sectionScore(injury.LastUpdated, injury.Confidence, now)
	}
	marketScore := 0.0
	if len(snapshot.Odds) > 0 {
		for _, odds := range snapshot.Odds {
			marketScore += sectionScore(odds.LastUpdated, odds.Confidence, now)
		}
		marketScore /= float64(len(snapshot.Odds))
	}
	dataQuality := 0.4*projScore + 0.3*marketScore + 0.2*sentScore + 0.1*injScore

	stability := predictionStability(predictions)

	efficiency := marketEfficiency(snapshot)

	alignment := e.sentimentAlignment(snapshot, sentiment, hasSentiment, trends)

	return models.MetaAnalysis{
		DataQuality:         clamp01(dataQuality),
		PredictionStability: clamp01(stability),
		MarketEfficiency:    clamp01(efficiency),
		SentimentAlignment:  clamp01(alignment),
	}
}

// sectionScore blends a section's freshness (linear decay over the stale
// window) with its reported confidence.
func sectionScore(lastUpdated time.Time, confidence float64, now time.Time) float64 {
	if lastUpdated.IsZero() {
		return confidence / 2
	}
	freshness := clamp01(1 - now.Sub(lastUpdated).Seconds()/staleAfter.Seconds())
	return (freshness + confidence) / 2
}

// predictionStability blends inverse factor-impact variance with the mean
// prediction confidence.
func predictionStability(predictions map[string]models.MetricPrediction) float64 {
	if len(predictions) == 0 {
		return 0
	}

	var impacts, confidences []float64
	for _, prediction := range predictions {
		confidences = append(confidences, prediction.Confidence)
		for _, factor := range prediction.Factors {
			impacts = append(impacts, factor.Impact)
		}
	}

	variancePenalty := math.Min(1, stdDev(impacts))
	return 0.5*(1-variancePenalty) + 0.5*mean(confidences)
}

// marketEfficiency inverts average odds movement magnitude, averaged with
// fixed liquidity and convergence placeholders until richer market data
// exists.
func marketEfficiency(snapshot *models.IntegratedData) float64 {
	const liquidityPlaceholder = 0.5
	const convergencePlaceholder = 0.5

	movement := 0.0
	if len(snapshot.Odds) > 0 {
		for _, odds := range snapshot.Odds {
			movement += math.Abs(odds.Movement.Magnitude)
		}
		movement /= float64(len(snapshot.Odds))
	}
	inverseMovement := clamp01(1 - math.Min(1, movement))

	return (inverseMovement + liquidityPlaceholder + convergencePlaceholder) / 3
}

// sentimentAlignment blends the snapshot's sentiment-performance correlation
// with how consistently this entity's trends agree with sentiment direction
// and the sentiment volume confidence.
func (e *AnalysisEngine) sentimentAlignment(snapshot *models.IntegratedData, sentiment models.EntitySentiment, hasSentiment bool, trends map[string]models.TrendData) float64 {
	corrScore := (snapshot.Correlations["sentiment_projection"] + 1) / 2

	consistency := 0.5
	volumeConf := 0.0
	if hasSentiment {
		volumeConf = math.Min(1, float64(sentiment.Volume)/sentimentVolumeNorm)
		if len(trends) > 0 {
			agreement := 0.0
			for _, trendData := range trends {
				switch {
				case trendData.Direction == models.TrendUp && sentiment.Score > 0:
					agreement++
				case trendData.Direction == models.TrendDown && sentiment.Score < 0:
					agreement++
				case trendData.Direction == models.TrendStable:
					agreement += 0.5
				}
			}
			consistency = agreement / float64(len(trends))
		}
	}

	return 0.4*corrScore + 0.3*consistency + 0.3*volumeConf
}
