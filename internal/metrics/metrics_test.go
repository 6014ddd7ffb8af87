package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_SyncCycle(t *testing.T) {
	recorder := New(prometheus.NewRegistry())

	recorder.RecordSyncCycle(0.25)
	recorder.RecordSyncCycle(0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.syncCycles))
}

func TestRecorder_FetchOutcomes(t *testing.T) {
	recorder := New(prometheus.NewRegistry())

	recorder.RecordFetchSuccess("statline", 0.1)
	recorder.RecordFetchSuccess("statline", 0.2)
	recorder.RecordFetchError("pulsewire")

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.sourceFetches.WithLabelValues("statline", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.sourceFetches.WithLabelValues("pulsewire", "error")))
}

func TestRecorder_SourceQuality(t *testing.T) {
	recorder := New(prometheus.NewRegistry())

	recorder.RecordSourceQuality("oddsboard", 0.81)
	assert.Equal(t, 0.81, testutil.ToFloat64(recorder.sourceQuality.WithLabelValues("oddsboard")))

	// Gauges track the latest value, not a running total
	recorder.RecordSourceQuality("oddsboard", 0.729)
	assert.Equal(t, 0.729, testutil.ToFloat64(recorder.sourceQuality.WithLabelValues("oddsboard")))
}

func TestRecorder_PredictionsAndAlerts(t *testing.T) {
	recorder := New(prometheus.NewRegistry())

	recorder.RecordPrediction("low")
	recorder.RecordPrediction("low")
	recorder.RecordPrediction("high")
	recorder.RecordPredictionFailure("empty_model_outputs")
	recorder.RecordOutcome("ensemble")
	recorder.RecordAlert("ensemble", "critical")

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.predictions.WithLabelValues("low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.predictions.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.predictionFailures.WithLabelValues("empty_model_outputs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.outcomes.WithLabelValues("ensemble")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.alerts.WithLabelValues("ensemble", "critical")))
}

func TestRecorder_CacheOperations(t *testing.T) {
	recorder := New(prometheus.NewRegistry())

	recorder.RecordCacheHit("snapshot")
	recorder.RecordCacheHit("snapshot")
	recorder.RecordCacheMiss("snapshot")

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.cacheOps.WithLabelValues("snapshot", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.cacheOps.WithLabelValues("snapshot", "miss")))
}

func TestRecorder_HandlerServesRegistry(t *testing.T) {
	recorder := New(prometheus.NewRegistry())
	recorder.RecordSyncCycle(0.1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a1core_sync_cycles_total")
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	first := New(prometheus.NewRegistry())
	second := New(prometheus.NewRegistry())

	first.RecordPrediction("medium")

	assert.Equal(t, 1.0, testutil.ToFloat64(first.predictions.WithLabelValues("medium")))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.predictions.WithLabelValues("medium")))
}
