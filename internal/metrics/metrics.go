// Package metrics exposes the service's Prometheus instrumentation. All
// collectors register against an injected registry so tests can build
// isolated recorders without colliding on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns every Prometheus collector the service emits
type Recorder struct {
	registry *prometheus.Registry

	syncCycles    prometheus.Counter
	syncDuration  prometheus.Histogram
	sourceFetches *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	sourceQuality *prometheus.GaugeVec

	predictions        *prometheus.CounterVec
	predictionFailures *prometheus.CounterVec

	outcomes *prometheus.CounterVec
	alerts   *prometheus.CounterVec

	cacheOps *prometheus.CounterVec
}

// New creates a recorder whose collectors are registered on reg
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		syncCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "a1core_sync_cycles_total",
			Help: "Total number of completed integration sync cycles",
		}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "a1core_sync_duration_seconds",
			Help:    "Duration of integration sync cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		sourceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_source_fetches_total",
				Help: "Total source fetch attempts by outcome",
			},
			[]string{"source", "status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "a1core_source_fetch_duration_seconds",
				Help:    "Duration of source fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		sourceQuality: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "a1core_source_data_quality",
				Help: "Rolling data quality score per source",
			},
			[]string{"source"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_predictions_total",
				Help: "Total predictions generated by risk level",
			},
			[]string{"risk_level"},
		),
		predictionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_prediction_failures_total",
				Help: "Total rejected prediction requests by reason",
			},
			[]string{"reason"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_outcomes_total",
				Help: "Total settled outcomes recorded per model",
			},
			[]string{"model"},
		),
		alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_performance_alerts_total",
				Help: "Total performance alerts raised by model and severity",
			},
			[]string{"model", "severity"},
		),
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a1core_cache_operations_total",
				Help: "Cache lookups by category and result",
			},
			[]string{"cache", "result"},
		),
	}
}

// Handler serves the recorder's registry in Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordSyncCycle records one completed sync cycle and its duration
func (r *Recorder) RecordSyncCycle(seconds float64) {
	r.syncCycles.Inc()
	r.syncDuration.Observe(seconds)
}

// RecordFetchSuccess records a successful source fetch and its duration
func (r *Recorder) RecordFetchSuccess(source string, seconds float64) {
	r.sourceFetches.WithLabelValues(source, "success").Inc()
	r.fetchDuration.WithLabelValues(source).Observe(seconds)
}

// RecordFetchError records a failed source fetch
func (r *Recorder) RecordFetchError(source string) {
	r.sourceFetches.WithLabelValues(source, "error").Inc()
}

// RecordSourceQuality records a source's current data quality score
func (r *Recorder) RecordSourceQuality(source string, quality float64) {
	r.sourceQuality.WithLabelValues(source).Set(quality)
}

// RecordPrediction records a generated prediction by risk level
func (r *Recorder) RecordPrediction(riskLevel string) {
	r.predictions.WithLabelValues(riskLevel).Inc()
}

// RecordPredictionFailure records a rejected prediction request
func (r *Recorder) RecordPredictionFailure(reason string) {
	r.predictionFailures.WithLabelValues(reason).Inc()
}

// RecordOutcome records one settled outcome for a model
func (r *Recorder) RecordOutcome(model string) {
	r.outcomes.WithLabelValues(model).Inc()
}

// RecordAlert records one raised performance alert
func (r *Recorder) RecordAlert(model, severity string) {
	r.alerts.WithLabelValues(model, severity).Inc()
}

// RecordCacheHit records a cache hit for the given category
func (r *Recorder) RecordCacheHit(cache string) {
	r.cacheOps.WithLabelValues(cache, "hit").Inc()
}

// RecordCacheMiss records a cache miss for the given category
func (r *Recorder) RecordCacheMiss(cache string) {
	r.cacheOps.WithLabelValues(cache, "miss").Inc()
}
