package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/metrics"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
)

// ErrInvalidOutcome is returned when a recorded outcome fails validation
var ErrInvalidOutcome = errors.New("invalid outcome")

// Calibration scoring parameters: outcomes are bucketed into confidence
// bins, and the score needs a minimum sample count to mean anything.
const (
	calibrationBins       = 10
	calibrationMinSamples = 10
)

// kellyCap limits the Kelly fraction to half-Kelly staking
const kellyCap = 0.5

// notifyTimeout bounds out-of-band alert delivery
const notifyTimeout = 10 * time.Second

// defaultThresholdRules is the built-in alerting table evaluated on every
// MonitorPerformance call, before any caller-supplied rules.
var defaultThresholdRules = []models.ThresholdRule{
	{Metric: models.MetricROI, Direction: models.ThresholdBelow, Threshold: -0.10, Severity: models.AlertSeverityWarning},
	{Metric: models.MetricROI, Direction: models.ThresholdBelow, Threshold: -0.20, Severity: models.AlertSeverityCritical},
	{Metric: models.MetricWinRate, Direction: models.ThresholdBelow, Threshold: 0.40, Severity: models.AlertSeverityWarning},
	{Metric: models.MetricWinRate, Direction: models.ThresholdBelow, Threshold: 0.30, Severity: models.AlertSeverityCritical},
	{Metric: models.MetricMaxDrawdown, Direction: models.ThresholdAbove, Threshold: 0.20, Severity: models.AlertSeverityWarning},
	{Metric: models.MetricMaxDrawdown, Direction: models.ThresholdAbove, Threshold: 0.30, Severity: models.AlertSeverityCritical},
	{Metric: models.MetricCalibration, Direction: models.ThresholdBelow, Threshold: 0.60, Severity: models.AlertSeverityWarning},
	{Metric: models.MetricCalibration, Direction: models.ThresholdBelow, Threshold: 0.50, Severity: models.AlertSeverityCritical},
}

// AlertSink receives alerts selected for out-of-band delivery
type AlertSink interface {
	NotifyAlert(ctx context.Context, alert models.Alert) error
}

// calibrationSample pairs a prediction's confidence with its realized result
type calibrationSample struct {
	confidence float64
	won        bool
}

// modelRecord is the full mutable state tracked for one model name
type modelRecord struct {
	metrics models.ModelPerformanceMetrics
	history []models.PerformanceSnapshot

	// Confidences of tracked predictions waiting for an outcome, oldest
	// first. Outcomes consume from the front to build calibration samples.
	pendingConfidences []float64
	samples            []calibrationSample
}

// PerformanceMonitor tracks predictions and realized outcomes per model,
// recomputes every derived ratio on each outcome, and raises threshold
// alerts into a capped ring buffer. Critical alerts are also pushed to the
// configured sink.
type PerformanceMonitor struct {
	logger   *logrus.Logger
	recorder *metrics.Recorder
	notifier AlertSink

	historyLimit int
	alertCap     int

	mu      sync.RWMutex
	records map[string]*modelRecord

	alertsMu sync.Mutex
	alerts   []models.Alert
}

// NewPerformanceMonitor creates a monitor with no tracked models. Recorder
// and notifier are optional.
func NewPerformanceMonitor(cfg *config.Config, logger *logrus.Logger, recorder *metrics.Recorder, notifier AlertSink) *PerformanceMonitor {
	historyLimit := cfg.Monitor.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 500
	}
	alertCap := cfg.Monitor.AlertBufferSize
	if alertCap <= 0 {
		alertCap = 200
	}
	return &PerformanceMonitor{
		logger:       logger,
		recorder:     recorder,
		notifier:     notifier,
		historyLimit: historyLimit,
		alertCap:     alertCap,
		records:      make(map[string]*modelRecord),
	}
}

// TrackPrediction updates a model's running totals and average confidence.
// The recommendation is audit context for the log stream only.
func (pm *PerformanceMonitor) TrackPrediction(modelName string, prediction *models.FinalPrediction, recommendation string) {
	if prediction == nil {
		return
	}

	pm.mu.Lock()
	rec := pm.record(modelName)
	rec.metrics.Predictions++
	rec.metrics.AvgConfidence += (prediction.Confidence - rec.metrics.AvgConfidence) / float64(rec.metrics.Predictions)
	rec.metrics.LastPrediction = time.Now()
	rec.metrics.UpdatedAt = rec.metrics.LastPrediction

	rec.pendingConfidences = append(rec.pendingConfidences, prediction.Confidence)
	if len(rec.pendingConfidences) > pm.historyLimit {
		rec.pendingConfidences = rec.pendingConfidences[len(rec.pendingConfidences)-pm.historyLimit:]
	}
	pm.mu.Unlock()

	pm.logger.WithFields(logrus.Fields{
		"model":          modelName,
		"prediction_id":  prediction.ID,
		"confidence":     prediction.Confidence,
		"recommendation": recommendation,
	}).Debug("Tracked prediction")
}

// RecordOutcome settles one bet against a model and recomputes every
// derived metric. Stake must be positive and payout non-negative.
func (pm *PerformanceMonitor) RecordOutcome(modelName string, stake, payout decimal.Decimal, odds float64) error {
	if !stake.IsPositive() {
		return fmt.Errorf("stake must be positive, got %s: %w", stake, ErrInvalidOutcome)
	}
	if payout.IsNegative() {
		return fmt.Errorf("payout must not be negative, got %s: %w", payout, ErrInvalidOutcome)
	}

	profit := payout.Sub(stake)
	won := payout.GreaterThan(stake)
	now := time.Now()

	pm.mu.Lock()
	rec := pm.record(modelName)
	m := &rec.metrics

	m.Outcomes++
	if won {
		m.Wins++
	} else {
		m.Losses++
	}
	m.TotalStake = m.TotalStake.Add(stake)
	m.TotalPayout = m.TotalPayout.Add(payout)
	if profit.IsPositive() {
		m.GrossProfit = m.GrossProfit.Add(profit)
	} else {
		m.GrossLoss = m.GrossLoss.Add(profit.Abs())
	}
	m.AvgOdds += (odds - m.AvgOdds) / float64(m.Outcomes)

	netProfit := m.TotalPayout.Sub(m.TotalStake)
	m.ROI = netProfit.Div(m.TotalStake).InexactFloat64()
	m.WinRate = float64(m.Wins) / float64(m.Outcomes)
	if m.GrossLoss.IsZero() {
		m.ProfitFactor = 0
	} else {
		m.ProfitFactor = m.GrossProfit.Div(m.GrossLoss).InexactFloat64()
	}
	m.ExpectedValue = netProfit.InexactFloat64() / float64(m.Outcomes)

	confidence := m.AvgConfidence
	if len(rec.pendingConfidences) > 0 {
		confidence = rec.pendingConfidences[0]
		rec.pendingConfidences = rec.pendingConfidences[1:]
	}
	rec.samples = append(rec.samples, calibrationSample{confidence: confidence, won: won})
	if len(rec.samples) > pm.historyLimit {
		rec.samples = rec.samples[len(rec.samples)-pm.historyLimit:]
	}
	m.CalibrationScore = calibrationScore(rec.samples)

	rec.history = append(rec.history, models.PerformanceSnapshot{
		Timestamp:    now,
		ROI:          m.ROI,
		WinRate:      m.WinRate,
		ProfitFactor: m.ProfitFactor,
		Outcomes:     m.Outcomes,
	})
	if len(rec.history) > pm.historyLimit {
		rec.history = rec.history[len(rec.history)-pm.historyLimit:]
	}

	m.SharpeRatio = sharpeFromHistory(rec.history)
	m.MaxDrawdown = maxDrawdown(rec.history)
	m.KellyFraction = kellyFraction(m.WinRate, m.AvgOdds)
	m.LastOutcome = now
	m.UpdatedAt = now

	roi := m.ROI
	winRate := m.WinRate
	pm.mu.Unlock()

	if pm.recorder != nil {
		pm.recorder.RecordOutcome(modelName)
	}
	pm.logger.WithFields(logrus.Fields{
		"model":    modelName,
		"stake":    stake.String(),
		"payout":   payout.String(),
		"won":      won,
		"roi":      roi,
		"win_rate": winRate,
	}).Info("Recorded outcome")

	return nil
}

// MonitorPerformance evaluates the built-in threshold table plus any custom
// rules against the given metrics, appending an alert for every breach.
// Critical alerts are forwarded to the notifier asynchronously.
func (pm *PerformanceMonitor) MonitorPerformance(modelName string, m *models.ModelPerformanceMetrics, customRules ...models.ThresholdRule) []models.Alert {
	if m == nil {
		return nil
	}

	rules := make([]models.ThresholdRule, 0, len(defaultThresholdRules)+len(customRules))
	rules = append(rules, defaultThresholdRules...)
	rules = append(rules, customRules...)

	var raised []models.Alert
	now := time.Now()
	for _, rule := range rules {
		value, known := metricValue(m, rule.Metric)
		if !known {
			pm.logger.WithField("metric", rule.Metric).Warn("Skipping threshold rule for unknown metric")
			continue
		}
		if !breached(value, rule) {
			continue
		}
		raised = append(raised, models.Alert{
			ID:        uuid.New().String(),
			ModelName: modelName,
			Metric:    rule.Metric,
			Value:     value,
			Threshold: rule.Threshold,
			Severity:  rule.Severity,
			Message:   fmt.Sprintf("%s %s is %.4f, %s threshold %.4f", modelName, rule.Metric, value, rule.Direction, rule.Threshold),
			Timestamp: now,
		})
	}
	if len(raised) == 0 {
		return nil
	}

	pm.alertsMu.Lock()
	pm.alerts = append(pm.alerts, raised...)
	if len(pm.alerts) > pm.alertCap {
		pm.alerts = pm.alerts[len(pm.alerts)-pm.alertCap:]
	}
	pm.alertsMu.Unlock()

	for _, alert := range raised {
		if pm.recorder != nil {
			pm.recorder.RecordAlert(alert.ModelName, string(alert.Severity))
		}
		pm.logger.WithFields(logrus.Fields{
			"model":     alert.ModelName,
			"metric":    alert.Metric,
			"value":     alert.Value,
			"threshold": alert.Threshold,
			"severity":  string(alert.Severity),
		}).Warn("Performance threshold breached")

		if alert.Severity == models.AlertSeverityCritical && pm.notifier != nil {
			go pm.deliverAlert(alert)
		}
	}
	return raised
}

func (pm *PerformanceMonitor) deliverAlert(alert models.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := pm.notifier.NotifyAlert(ctx, alert); err != nil {
		pm.logger.WithError(err).WithField("alert_id", alert.ID).Error("Failed to deliver critical alert")
	}
}

// GetAlerts returns alerts matching the filter, oldest first. Zero filter
// fields match everything.
func (pm *PerformanceMonitor) GetAlerts(filter models.AlertFilter) []models.Alert {
	pm.alertsMu.Lock()
	defer pm.alertsMu.Unlock()

	var out []models.Alert
	for _, alert := range pm.alerts {
		if filter.ModelName != "" && alert.ModelName != filter.ModelName {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if !filter.Since.IsZero() && alert.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, alert)
	}
	return out
}

// ClearAlerts drops one model's alerts from the buffer. An empty model name
// clears the whole buffer.
func (pm *PerformanceMonitor) ClearAlerts(modelName string) {
	pm.alertsMu.Lock()
	defer pm.alertsMu.Unlock()

	if modelName == "" {
		pm.alerts = nil
		return
	}
	kept := pm.alerts[:0]
	for _, alert := range pm.alerts {
		if alert.ModelName != modelName {
			kept = append(kept, alert)
		}
	}
	pm.alerts = kept
}

// GetMetrics returns a copy of one model's metrics
func (pm *PerformanceMonitor) GetMetrics(modelName string) (models.ModelPerformanceMetrics, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	rec, ok := pm.records[modelName]
	if !ok {
		return models.ModelPerformanceMetrics{}, false
	}
	return rec.metrics, true
}

// GetAllMetrics returns a copy of every tracked model's metrics
func (pm *PerformanceMonitor) GetAllMetrics() map[string]models.ModelPerformanceMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make(map[string]models.ModelPerformanceMetrics, len(pm.records))
	for name, rec := range pm.records {
		out[name] = rec.metrics
	}
	return out
}

// GetHistory returns a copy of one model's performance snapshot history
func (pm *PerformanceMonitor) GetHistory(modelName string) []models.PerformanceSnapshot {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	rec, ok := pm.records[modelName]
	if !ok {
		return nil
	}
	out := make([]models.PerformanceSnapshot, len(rec.history))
	copy(out, rec.history)
	return out
}

// record returns the model's record, creating it on first touch. Caller
// holds pm.mu.
func (pm *PerformanceMonitor) record(modelName string) *modelRecord {
	rec, ok := pm.records[modelName]
	if !ok {
		rec = &modelRecord{metrics: models.ModelPerformanceMetrics{ModelName: modelName}}
		pm.records[modelName] = rec
	}
	return rec
}

func metricValue(m *models.ModelPerformanceMetrics, metric string) (float64, bool) {
	switch metric {
	case models.MetricROI:
		return m.ROI, true
	case models.MetricWinRate:
		return m.WinRate, true
	case models.MetricMaxDrawdown:
		return m.MaxDrawdown, true
	case models.MetricCalibration:
		return m.CalibrationScore, true
	case models.MetricSharpe:
		return m.SharpeRatio, true
	case models.MetricKelly:
		return m.KellyFraction, true
	default:
		return 0, false
	}
}

func breached(value float64, rule models.ThresholdRule) bool {
	switch rule.Direction {
	case models.ThresholdBelow:
		return value < rule.Threshold
	case models.ThresholdAbove:
		return value > rule.Threshold
	default:
		return false
	}
}

// sharpeFromHistory is the mean of consecutive ROI deltas over their
// standard deviation. Too little history or a flat series scores 0.
func sharpeFromHistory(history []models.PerformanceSnapshot) float64 {
	if len(history) < 2 {
		return 0
	}
	deltas := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		deltas = append(deltas, history[i].ROI-history[i-1].ROI)
	}
	sd := stdDev(deltas)
	if sd == 0 {
		return 0
	}
	return mean(deltas) / sd
}

// maxDrawdown is the largest peak-to-trough drop in cumulative ROI
func maxDrawdown(history []models.PerformanceSnapshot) float64 {
	peak := math.Inf(-1)
	deepest := 0.0
	for _, snap := range history {
		if snap.ROI > peak {
			peak = snap.ROI
		}
		if drop := peak - snap.ROI; drop > deepest {
			deepest = drop
		}
	}
	return deepest
}

// kellyFraction is (p*b - q)/b clamped to [0, kellyCap], where b is the
// average decimal odds minus one. Non-positive b yields 0.
func kellyFraction(winRate, avgOdds float64) float64 {
	b := avgOdds - 1
	if b <= 0 {
		return 0
	}
	k := (winRate*b - (1 - winRate)) / b
	return clampFloat(k, 0, kellyCap)
}

// calibrationScore buckets samples into confidence bins and compares each
// bin's expected win rate (mean confidence) to its observed win rate.
func calibrationScore(samples []calibrationSample) float64 {
	if len(samples) < calibrationMinSamples {
		return 0
	}

	type bin struct {
		confSum float64
		wins    int
		count   int
	}
	bins := make([]bin, calibrationBins)
	for _, sample := range samples {
		idx := int(sample.confidence * calibrationBins)
		if idx >= calibrationBins {
			idx = calibrationBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].count++
		bins[idx].confSum += sample.confidence
		if sample.won {
			bins[idx].wins++
		}
	}

	var squaredError float64
	populated := 0
	for _, b := range bins {
		if b.count == 0 {
			continue
		}
		expected := b.confSum / float64(b.count)
		observed := float64(b.wins) / float64(b.count)
		squaredError += (expected - observed) * (expected - observed)
		populated++
	}
	if populated == 0 {
		return 0
	}
	return math.Max(0, 1-math.Sqrt(squaredError/float64(populated)))
}
