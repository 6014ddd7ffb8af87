package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
	"github.com/itzcole03/A1forBolt-sub001/internal/config"
	"github.com/itzcole03/A1forBolt-sub001/internal/metrics"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/internal/telemetry"
	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
)

// qualityDecayFactor shrinks a source's rolling quality score on every
// failed fetch; successes blend the score back toward payload confidence.
const qualityDecayFactor = 0.9

// IntegrationEvent is delivered to subscribers after each published snapshot
type IntegrationEvent struct {
	Data      *models.IntegratedData
	Timestamp time.Time
}

// IntegrationSubscriber receives integration events synchronously after each
// sync cycle. Implementations must not block; long work belongs in their own
// goroutines.
type IntegrationSubscriber interface {
	OnIntegrationComplete(event IntegrationEvent)
}

// fetchResult carries one adapter's outcome back to the merge step
type fetchResult struct {
	sourceID string
	kind     feeds.SourceKind
	data     *feeds.SourceData
	err      error
	latency  time.Duration
}

// DataIntegrationHub fans out to all registered source adapters, merges
// their payloads into a single immutable snapshot, and publishes it to
// subscribers. Snapshots are replaced wholesale; readers always see either
// the previous complete snapshot or the new one, never a partial merge.
type DataIntegrationHub struct {
	config     *config.Config
	logger     *logrus.Logger
	snapshots  *cache.SnapshotCache
	recorder   *metrics.Recorder
	titleCaser cases.Caser

	mu            sync.RWMutex
	adapters      map[string]feeds.SourceAdapter
	breakers      map[string]*CircuitBreaker
	sourceMetrics map[string]*models.SourceMetrics
	subscribers   []IntegrationSubscriber
	current       *models.IntegratedData
	lastSync      time.Time
	syncCount     int64

	runMu    sync.Mutex
	running  bool
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewDataIntegrationHub creates a hub with no registered sources. The
// snapshot cache and metrics recorder are optional; a nil value disables
// that concern without changing hub behavior.
func NewDataIntegrationHub(cfg *config.Config, logger *logrus.Logger, snapshots *cache.SnapshotCache, recorder *metrics.Recorder) *DataIntegrationHub {
	return &DataIntegrationHub{
		config:        cfg,
		logger:        logger,
		snapshots:     snapshots,
		recorder:      recorder,
		titleCaser:    cases.Title(language.English),
		adapters:      make(map[string]feeds.SourceAdapter),
		breakers:      make(map[string]*CircuitBreaker),
		sourceMetrics: make(map[string]*models.SourceMetrics),
		interval:      cfg.Integration.SyncIntervalDuration(),
	}
}

// RegisterSource adds an adapter to the sync cycle. Source IDs are unique;
// registering a duplicate is rejected.
func (h *DataIntegrationHub) RegisterSource(adapter feeds.SourceAdapter) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := adapter.ID()
	if _, exists := h.adapters[id]; exists {
		return fmt.Errorf("source %s is already registered", id)
	}

	h.adapters[id] = adapter
	h.breakers[id] = NewCircuitBreaker(id, BreakerSettings{
		MaxFailures: h.config.Integration.BreakerMaxFailures,
		ResetAfter:  h.config.Integration.BreakerResetAfterDuration(),
	}, h.logger)
	h.sourceMetrics[id] = &models.SourceMetrics{
		SourceID:    id,
		Kind:        string(adapter.Kind()),
		DisplayName: h.displayName(id),
		DataQuality: 1.0,
	}

	h.logger.WithFields(logrus.Fields{
		"source": id,
		"kind":   string(adapter.Kind()),
	}).Info("Registered data source")
	return nil
}

// Subscribe adds a subscriber notified after every published snapshot
func (h *DataIntegrationHub) Subscribe(sub IntegrationSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, sub)
}

// Start warms the snapshot from cache, runs one immediate sync, and begins
// the periodic loop. The next cycle is scheduled only after the previous one
// finishes, so slow fetches stretch the period instead of stacking cycles.
func (h *DataIntegrationHub) Start(ctx context.Context) error {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.running {
		return fmt.Errorf("integration hub already started")
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running = true

	if h.snapshots != nil {
		if snap, ok := h.snapshots.LoadSnapshot(h.ctx); ok {
			h.mu.Lock()
			if h.current == nil {
				h.current = snap
				h.lastSync = snap.Timestamp
			}
			h.mu.Unlock()
			h.logger.WithField("snapshot_time", snap.Timestamp).Info("Restored integration snapshot from cache")
		}
	}

	h.wg.Add(1)
	go h.syncLoop()

	h.logger.WithFields(logrus.Fields{
		"sources":  h.sourceCount(),
		"interval": h.SyncInterval().String(),
	}).Info("Data integration hub started")
	return nil
}

// Stop cancels the sync loop and waits for in-flight work to finish
func (h *DataIntegrationHub) Stop() {
	h.runMu.Lock()
	if !h.running {
		h.runMu.Unlock()
		return
	}
	h.cancel()
	h.running = false
	h.runMu.Unlock()

	h.wg.Wait()
	h.logger.Info("Data integration hub stopped")
}

// SetSyncInterval changes the period between sync cycles. The new interval
// takes effect when the current cycle's timer is rearmed.
func (h *DataIntegrationHub) SetSyncInterval(interval time.Duration) {
	if interval <= 0 {
		h.logger.WithField("interval", interval.String()).Warn("Ignoring non-positive sync interval")
		return
	}
	h.runMu.Lock()
	h.interval = interval
	h.runMu.Unlock()
	h.logger.WithField("interval", interval.String()).Info("Sync interval updated")
}

// SyncInterval returns the currently configured sync period
func (h *DataIntegrationHub) SyncInterval() time.Duration {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.interval
}

func (h *DataIntegrationHub) syncLoop() {
	defer h.wg.Done()

	h.SynchronizeAll(h.ctx)

	timer := time.NewTimer(h.SyncInterval())
	defer timer.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-timer.C:
			h.SynchronizeAll(h.ctx)
			timer.Reset(h.SyncInterval())
		}
	}
}

// SynchronizeAll fetches every registered source in parallel, merges what
// arrived into a fresh snapshot, publishes it, and notifies subscribers.
// Sync is best-effort: failed sources are recorded in their metrics and the
// cycle completes with whatever data the remaining sources returned.
func (h *DataIntegrationHub) SynchronizeAll(ctx context.Context) *models.IntegratedData {
	ctx, span := telemetry.Tracer("integration-hub").Start(ctx, "hub.synchronize_all")
	defer span.End()
	start := time.Now()

	h.mu.RLock()
	adapters := make([]feeds.SourceAdapter, 0, len(h.adapters))
	for _, adapter := range h.adapters {
		adapters = append(adapters, adapter)
	}
	previous := h.current
	h.mu.RUnlock()

	results := make(chan fetchResult, len(adapters))
	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter feeds.SourceAdapter) {
			defer wg.Done()
			results <- h.fetchSource(ctx, adapter)
		}(adapter)
	}
	wg.Wait()
	close(results)

	snapshot := newEmptySnapshot()
	failures := 0
	for res := range results {
		confidence := 0.0
		if res.err == nil {
			confidence = h.assessConfidence(res.data)
		}
		h.recordFetch(res, confidence)
		if res.err != nil {
			failures++
			continue
		}
		h.mergeSource(snapshot, previous, res.data, confidence)
		if h.snapshots != nil {
			h.snapshots.SaveSourcePayload(ctx, res.data)
		}
	}

	h.computeTrends(snapshot, previous)
	h.computeCorrelations(snapshot)

	h.mu.Lock()
	h.current = snapshot
	h.lastSync = snapshot.Timestamp
	h.syncCount++
	subscribers := append([]IntegrationSubscriber(nil), h.subscribers...)
	h.mu.Unlock()

	if h.snapshots != nil {
		h.snapshots.SaveSnapshot(ctx, snapshot)
	}

	duration := time.Since(start)
	if h.recorder != nil {
		h.recorder.RecordSyncCycle(duration.Seconds())
	}
	h.logger.WithFields(logrus.Fields{
		"sources":     len(adapters),
		"failures":    failures,
		"entities":    len(snapshot.Projections),
		"trends":      len(snapshot.Trends),
		"duration_ms": duration.Milliseconds(),
	}).Info("Integration sync cycle complete")

	event := IntegrationEvent{Data: snapshot, Timestamp: snapshot.Timestamp}
	for _, sub := range subscribers {
		sub.OnIntegrationComplete(event)
	}
	return snapshot
}

func newEmptySnapshot() *models.IntegratedData {
	return &models.IntegratedData{
		Timestamp:    time.Now(),
		Projections:  make(map[string]models.EntityProjection),
		Sentiment:    make(map[string]models.EntitySentiment),
		Odds:         make(map[string]models.MarketOdds),
		Injuries:     make(map[string]models.InjuryReport),
		Trends:       make(map[string]models.TrendData),
		Correlations: make(map[string]float64),
	}
}

// fetchSource runs one adapter fetch under its breaker and timeout. Breaker
// rejections surface as ordinary fetch errors so the source's metrics keep
// counting while the provider is quarantined.
func (h *DataIntegrationHub) fetchSource(ctx context.Context, adapter feeds.SourceAdapter) fetchResult {
	fctx, cancel := context.WithTimeout(ctx, h.config.Sources.FetchTimeoutDuration())
	defer cancel()

	h.mu.RLock()
	breaker := h.breakers[adapter.ID()]
	h.mu.RUnlock()

	start := time.Now()
	var data *feeds.SourceData
	run := func(c context.Context) error {
		if !adapter.IsAvailable(c) {
			return &feeds.FetchError{SourceID: adapter.ID(), Err: feeds.ErrSourceUnavailable}
		}
		fetched, err := adapter.Fetch(c)
		if err != nil {
			return err
		}
		data = fetched
		return nil
	}

	var err error
	if breaker != nil {
		err = breaker.Execute(fctx, run)
	} else {
		err = run(fctx)
	}

	return fetchResult{
		sourceID: adapter.ID(),
		kind:     adapter.Kind(),
		data:     data,
		err:      err,
		latency:  time.Since(start),
	}
}

// recordFetch folds one fetch outcome into the source's rolling metrics
func (h *DataIntegrationHub) recordFetch(res fetchResult, confidence float64) {
	h.mu.Lock()
	m, ok := h.sourceMetrics[res.sourceID]
	if !ok {
		m = &models.SourceMetrics{
			SourceID:    res.sourceID,
			Kind:        string(res.kind),
			DisplayName: h.displayName(res.sourceID),
			DataQuality: 1.0,
		}
		h.sourceMetrics[res.sourceID] = m
	}

	m.FetchCount++
	m.AvgLatencyMS += (float64(res.latency.Milliseconds()) - m.AvgLatencyMS) / float64(m.FetchCount)
	if res.err != nil {
		m.ErrorCount++
		m.LastError = res.err.Error()
		m.LastErrorAt = time.Now()
		m.DataQuality *= qualityDecayFactor
	} else {
		m.LastSuccess = time.Now()
		m.DataQuality = (m.DataQuality + confidence) / 2
	}
	m.ErrorRate = float64(m.ErrorCount) / float64(m.FetchCount)
	quality := m.DataQuality
	h.mu.Unlock()

	if h.recorder != nil {
		if res.err != nil {
			h.recorder.RecordFetchError(res.sourceID)
		} else {
			h.recorder.RecordFetchSuccess(res.sourceID, res.latency.Seconds())
		}
		h.recorder.RecordSourceQuality(res.sourceID, quality)
	}
	if res.err != nil {
		h.logger.WithFields(logrus.Fields{
			"source":     res.sourceID,
			"latency_ms": res.latency.Milliseconds(),
			"error":      res.err.Error(),
			"quality":    quality,
		}).Warn("Source fetch failed")
	}
}

// assessConfidence scores a payload by presence and shape of its known
// fields: richer payloads earn a higher baseline confidence.
func (h *DataIntegrationHub) assessConfidence(data *feeds.SourceData) float64 {
	cfg := h.config.Integration
	switch data.Kind {
	case feeds.KindProjections:
		if len(data.Projections) == 0 {
			return cfg.ConfidenceSparse
		}
		statTotal := 0
		for _, row := range data.Projections {
			statTotal += len(row.Stats)
		}
		if statTotal >= len(data.Projections)*3 {
			return cfg.ConfidenceRich
		}
		return cfg.ConfidenceTypical
	case feeds.KindSentiment:
		if len(data.Sentiment) == 0 {
			return cfg.ConfidenceSparse
		}
		for _, row := range data.Sentiment {
			if len(row.Keywords) > 0 {
				return cfg.ConfidenceRich
			}
		}
		return cfg.ConfidenceTypical
	case feeds.KindOdds:
		if len(data.Odds) == 0 {
			return cfg.ConfidenceSparse
		}
		for _, row := range data.Odds {
			if len(row.Markets) >= 2 {
				return cfg.ConfidenceRich
			}
		}
		return cfg.ConfidenceTypical
	case feeds.KindInjuries:
		if len(data.Injuries) == 0 {
			return cfg.ConfidenceSparse
		}
		for _, row := range data.Injuries {
			if row.Detail != "" && row.Timeline != "" {
				return cfg.ConfidenceRich
			}
		}
		return cfg.ConfidenceTypical
	default:
		return cfg.ConfidenceSparse
	}
}

// mergeSource dispatches a payload to its section's merge routine. Payloads
// with an unrecognized kind land under Unrecognized keyed by source so they
// remain inspectable instead of silently dropped.
func (h *DataIntegrationHub) mergeSource(snapshot, previous *models.IntegratedData, data *feeds.SourceData, confidence float64) {
	switch data.Kind {
	case feeds.KindProjections:
		h.mergeProjections(snapshot, data, confidence)
	case feeds.KindSentiment:
		h.mergeSentiment(snapshot, data, confidence)
	case feeds.KindOdds:
		h.mergeOdds(snapshot, previous, data, confidence)
	case feeds.KindInjuries:
		h.mergeInjuries(snapshot, data, confidence)
	default:
		h.logger.WithFields(logrus.Fields{
			"source": data.SourceID,
			"kind":   string(data.Kind),
		}).Warn("Unrecognized source kind, merging under generic path")
		if snapshot.Unrecognized == nil {
			snapshot.Unrecognized = make(map[string]any)
		}
		if data.Raw != nil {
			snapshot.Unrecognized[data.SourceID] = data.Raw
		} else {
			snapshot.Unrecognized[data.SourceID] = data
		}
	}
}

func (h *DataIntegrationHub) mergeProjections(snapshot *models.IntegratedData, data *feeds.SourceData, confidence float64) {
	for _, row := range data.Projections {
		entry, exists := snapshot.Projections[row.EntityID]
		if !exists {
			entry = models.EntityProjection{Stats: make(map[string]float64)}
		}
		for stat, value := range row.Stats {
			entry.Stats[stat] = value
		}
		if confidence > entry.Confidence {
			entry.Confidence = confidence
		}
		entry.LastUpdated = row.UpdatedAt
		if entry.LastUpdated.IsZero() {
			entry.LastUpdated = data.FetchedAt
		}
		snapshot.Projections[row.EntityID] = entry
	}
}

func (h *DataIntegrationHub) mergeSentiment(snapshot *models.IntegratedData, data *feeds.SourceData, confidence float64) {
	for _, row := range data.Sentiment {
		snapshot.Sentiment[row.EntityID] = models.EntitySentiment{
			Score:       row.Score,
			Volume:      row.Volume,
			Trending:    row.Trending,
			Keywords:    row.Keywords,
			Confidence:  confidence,
			LastUpdated: data.FetchedAt,
		}
	}
}

func (h *DataIntegrationHub) mergeOdds(snapshot, previous *models.IntegratedData, data *feeds.SourceData, confidence float64) {
	for _, row := range data.Odds {
		markets := make(map[string]float64, len(row.Markets))
		for selection, price := range row.Markets {
			markets[selection] = price
		}

		movement := models.OddsMovement{Direction: models.TrendStable}
		if previous != nil {
			if prev, ok := previous.Odds[row.MarketID]; ok {
				movement = oddsMovement(prev.Markets, markets)
			}
		}

		snapshot.Odds[row.MarketID] = models.MarketOdds{
			Markets:     markets,
			Movement:    movement,
			Confidence:  confidence,
			LastUpdated: data.FetchedAt,
		}
	}
}

// oddsMovement compares average selection prices between snapshots
func oddsMovement(prev, next map[string]float64) models.OddsMovement {
	prevAvg := meanOfValues(prev)
	nextAvg := meanOfValues(next)
	return models.OddsMovement{
		Direction: classifyTrend(nextAvg, prevAvg),
		Magnitude: nextAvg - prevAvg,
	}
}

func (h *DataIntegrationHub) mergeInjuries(snapshot *models.IntegratedData, data *feeds.SourceData, confidence float64) {
	for _, row := range data.Injuries {
		snapshot.Injuries[row.EntityID] = models.InjuryReport{
			Status:      row.Status,
			Detail:      row.Detail,
			Impact:      row.Impact,
			Timeline:    row.Timeline,
			Confidence:  confidence,
			LastUpdated: data.FetchedAt,
		}
	}
}

// computeTrends diffs every projection stat and sentiment score against the
// previous snapshot. The first snapshot has nothing to diff against, and a
// metric absent from the previous snapshot is skipped: a trend needs two
// observations.
func (h *DataIntegrationHub) computeTrends(snapshot, previous *models.IntegratedData) {
	if previous == nil {
		return
	}

	for entityID, proj := range snapshot.Projections {
		prevProj, ok := previous.Projections[entityID]
		if !ok {
			continue
		}
		for stat, value := range proj.Stats {
			base, ok := prevProj.Stats[stat]
			if !ok {
				continue
			}
			change := value - base
			snapshot.Trends[entityID+":"+stat] = models.TrendData{
				Value:        value,
				Change:       change,
				Significance: trendSignificance(change, base),
				Direction:    classifyTrend(value, base),
			}
		}
	}

	for entityID, sent := range snapshot.Sentiment {
		prevSent, ok := previous.Sentiment[entityID]
		if !ok {
			continue
		}
		change := sent.Score - prevSent.Score
		snapshot.Trends[entityID+":sentiment_score"] = models.TrendData{
			Value:        sent.Score,
			Change:       change,
			Significance: trendSignificance(change, prevSent.Score),
			Direction:    classifyTrend(sent.Score, prevSent.Score),
		}
	}
}

// computeCorrelations relates sections across entities present in both.
// Entities are visited in sorted order so the paired series always line up.
func (h *DataIntegrationHub) computeCorrelations(snapshot *models.IntegratedData) {
	var sentScores, sentProjMeans []float64
	for _, entityID := range sortedKeys(snapshot.Sentiment) {
		proj, ok := snapshot.Projections[entityID]
		if !ok || len(proj.Stats) == 0 {
			continue
		}
		sentScores = append(sentScores, snapshot.Sentiment[entityID].Score)
		sentProjMeans = append(sentProjMeans, meanOfValues(proj.Stats))
	}
	snapshot.Correlations["sentiment_projection"] = pearsonCorrelation(sentScores, sentProjMeans)

	var impacts, injProjMeans []float64
	for _, entityID := range sortedKeys(snapshot.Injuries) {
		proj, ok := snapshot.Projections[entityID]
		if !ok || len(proj.Stats) == 0 {
			continue
		}
		impacts = append(impacts, snapshot.Injuries[entityID].Impact)
		injProjMeans = append(injProjMeans, meanOfValues(proj.Stats))
	}
	snapshot.Correlations["injury_projection"] = pearsonCorrelation(impacts, injProjMeans)
}

// GetIntegratedData returns the latest published snapshot, or nil before the
// first sync. Callers must treat the snapshot as read-only.
func (h *DataIntegrationHub) GetIntegratedData() *models.IntegratedData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// GetSourceMetrics returns a copy of every source's reliability metrics
func (h *DataIntegrationHub) GetSourceMetrics() map[string]models.SourceMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]models.SourceMetrics, len(h.sourceMetrics))
	for id, m := range h.sourceMetrics {
		out[id] = *m
	}
	return out
}

// GetBreakerStats returns each source breaker's counters
func (h *DataIntegrationHub) GetBreakerStats() map[string]BreakerStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]BreakerStats, len(h.breakers))
	for id, breaker := range h.breakers {
		out[id] = breaker.Stats()
	}
	return out
}

// LastSync returns when the latest snapshot was published
func (h *DataIntegrationHub) LastSync() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSync
}

// SyncCount returns how many sync cycles have completed
func (h *DataIntegrationHub) SyncCount() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.syncCount
}

func (h *DataIntegrationHub) sourceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.adapters)
}

func (h *DataIntegrationHub) displayName(id string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(id)
	return h.titleCaser.String(cleaned)
}

func meanOfValues(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
