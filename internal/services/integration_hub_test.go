package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzcole03/A1forBolt-sub001/internal/cache"
	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
)

// fakeAdapter is a scriptable source adapter for hub tests
type fakeAdapter struct {
	id        string
	kind      feeds.SourceKind
	available bool

	mu      sync.Mutex
	data    *feeds.SourceData
	err     error
	fetches int
}

func (a *fakeAdapter) ID() string                       { return a.id }
func (a *fakeAdapter) Kind() feeds.SourceKind           { return a.kind }
func (a *fakeAdapter) IsAvailable(context.Context) bool { return a.available }

func (a *fakeAdapter) Fetch(context.Context) (*feeds.SourceData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++
	if a.err != nil {
		return nil, a.err
	}
	return a.data, nil
}

func (a *fakeAdapter) setData(data *feeds.SourceData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = data
}

// gatedAdapter blocks Fetch until its gate closes
type gatedAdapter struct {
	id   string
	kind feeds.SourceKind
	gate chan struct{}
	data *feeds.SourceData
}

func (a *gatedAdapter) ID() string                       { return a.id }
func (a *gatedAdapter) Kind() feeds.SourceKind           { return a.kind }
func (a *gatedAdapter) IsAvailable(context.Context) bool { return true }

func (a *gatedAdapter) Fetch(ctx context.Context) (*feeds.SourceData, error) {
	select {
	case <-a.gate:
		return a.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// captureSubscriber records integration events
type captureSubscriber struct {
	mu     sync.Mutex
	events []IntegrationEvent
}

func (s *captureSubscriber) OnIntegrationComplete(event IntegrationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func projectionsAdapter(id string, stats map[string]map[string]float64) *fakeAdapter {
	data := &feeds.SourceData{SourceID: id, Kind: feeds.KindProjections, FetchedAt: time.Now()}
	for entityID, entityStats := range stats {
		data.Projections = append(data.Projections, feeds.ProjectionRow{EntityID: entityID, Stats: entityStats})
	}
	return &fakeAdapter{id: id, kind: feeds.KindProjections, available: true, data: data}
}

func TestDataIntegrationHub_RegisterSource(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	adapter := projectionsAdapter("statline", nil)
	require.NoError(t, hub.RegisterSource(adapter))

	err := hub.RegisterSource(adapter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	metrics := hub.GetSourceMetrics()
	require.Contains(t, metrics, "statline")
	assert.Equal(t, "Statline", metrics["statline"].DisplayName)
	assert.Equal(t, string(feeds.KindProjections), metrics["statline"].Kind)
	assert.InDelta(t, 1.0, metrics["statline"].DataQuality, 1e-9)
}

func TestDataIntegrationHub_SynchronizeAll_MergesAllKinds(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	require.NoError(t, hub.RegisterSource(projectionsAdapter("statline", map[string]map[string]float64{
		"player-1": {"points": 25.5, "rebounds": 10.0, "assists": 5.0},
	})))
	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "pulsewire", kind: feeds.KindSentiment, available: true,
		data: &feeds.SourceData{
			SourceID: "pulsewire", Kind: feeds.KindSentiment, FetchedAt: time.Now(),
			Sentiment: []feeds.SentimentRow{
				{EntityID: "player-1", Score: 0.6, Volume: 800, Trending: true, Keywords: []string{"hot streak"}},
			},
		},
	}))
	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "oddsboard", kind: feeds.KindOdds, available: true,
		data: &feeds.SourceData{
			SourceID: "oddsboard", Kind: feeds.KindOdds, FetchedAt: time.Now(),
			Odds: []feeds.OddsRow{
				{MarketID: "game-1", Markets: map[string]float64{"home": 1.9, "away": 2.1}},
			},
		},
	}))
	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "trainingroom", kind: feeds.KindInjuries, available: true,
		data: &feeds.SourceData{
			SourceID: "trainingroom", Kind: feeds.KindInjuries, FetchedAt: time.Now(),
			Injuries: []feeds.InjuryRow{
				{EntityID: "player-2", Status: "questionable", Detail: "ankle sprain", Impact: 0.5, Timeline: "day-to-day"},
			},
		},
	}))

	snapshot := hub.SynchronizeAll(context.Background())
	require.NotNil(t, snapshot)

	// Rich payloads earn the rich confidence tier
	proj := snapshot.Projections["player-1"]
	assert.InDelta(t, 25.5, proj.Stats["points"], 1e-9)
	assert.InDelta(t, 0.75, proj.Confidence, 1e-9)

	sent := snapshot.Sentiment["player-1"]
	assert.InDelta(t, 0.6, sent.Score, 1e-9)
	assert.Equal(t, 800, sent.Volume)
	assert.True(t, sent.Trending)

	odds := snapshot.Odds["game-1"]
	assert.InDelta(t, 1.9, odds.Markets["home"], 1e-9)
	assert.Equal(t, models.TrendStable, odds.Movement.Direction, "no previous snapshot to move from")

	injury := snapshot.Injuries["player-2"]
	assert.Equal(t, "questionable", injury.Status)
	assert.InDelta(t, 0.5, injury.Impact, 1e-9)

	assert.Contains(t, snapshot.Correlations, "sentiment_projection")
	assert.Contains(t, snapshot.Correlations, "injury_projection")
	assert.Empty(t, snapshot.Trends, "first cycle has nothing to diff against")

	assert.Same(t, snapshot, hub.GetIntegratedData())
	assert.Equal(t, int64(1), hub.SyncCount())
	assert.False(t, hub.LastSync().IsZero())

	// Successful fetch blends quality toward payload confidence
	metrics := hub.GetSourceMetrics()
	assert.InDelta(t, (1.0+0.75)/2, metrics["statline"].DataQuality, 1e-9)
	assert.Zero(t, metrics["statline"].ErrorCount)
}

func TestDataIntegrationHub_SynchronizeAll_PartialFailure(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	require.NoError(t, hub.RegisterSource(projectionsAdapter("statline", map[string]map[string]float64{
		"player-1": {"points": 20.0},
	})))
	failing := &fakeAdapter{id: "oddsboard", kind: feeds.KindOdds, available: true, err: errors.New("boom")}
	require.NoError(t, hub.RegisterSource(failing))

	snapshot := hub.SynchronizeAll(context.Background())
	require.NotNil(t, snapshot)

	// The healthy source still lands
	assert.Contains(t, snapshot.Projections, "player-1")
	assert.Empty(t, snapshot.Odds)

	metrics := hub.GetSourceMetrics()
	assert.Equal(t, int64(1), metrics["oddsboard"].FetchCount)
	assert.Equal(t, int64(1), metrics["oddsboard"].ErrorCount)
	assert.InDelta(t, 1.0, metrics["oddsboard"].ErrorRate, 1e-9)
	assert.InDelta(t, 0.9, metrics["oddsboard"].DataQuality, 1e-9)
	assert.Equal(t, "boom", metrics["oddsboard"].LastError)
	assert.False(t, metrics["oddsboard"].LastErrorAt.IsZero())

	// A second failing cycle decays quality again
	hub.SynchronizeAll(context.Background())
	metrics = hub.GetSourceMetrics()
	assert.InDelta(t, 0.81, metrics["oddsboard"].DataQuality, 1e-9)
	assert.InDelta(t, 1.0, metrics["oddsboard"].ErrorRate, 1e-9)

	breakers := hub.GetBreakerStats()
	assert.Equal(t, int64(2), breakers["oddsboard"].Failures)
}

func TestDataIntegrationHub_UnavailableSourceCountsAsFailure(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	down := &fakeAdapter{id: "pulsewire", kind: feeds.KindSentiment, available: false}
	require.NoError(t, hub.RegisterSource(down))

	hub.SynchronizeAll(context.Background())

	metrics := hub.GetSourceMetrics()
	assert.Equal(t, int64(1), metrics["pulsewire"].ErrorCount)
	assert.Contains(t, metrics["pulsewire"].LastError, "unavailable")
	down.mu.Lock()
	assert.Zero(t, down.fetches, "unavailable sources are not fetched")
	down.mu.Unlock()
}

func TestDataIntegrationHub_TrendsOnSecondCycle(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	proj := projectionsAdapter("statline", map[string]map[string]float64{
		"player-1": {"points": 20.0},
	})
	require.NoError(t, hub.RegisterSource(proj))

	sentiment := &fakeAdapter{
		id: "pulsewire", kind: feeds.KindSentiment, available: true,
		data: &feeds.SourceData{
			SourceID: "pulsewire", Kind: feeds.KindSentiment, FetchedAt: time.Now(),
			Sentiment: []feeds.SentimentRow{{EntityID: "player-1", Score: 0.5, Volume: 100}},
		},
	}
	require.NoError(t, hub.RegisterSource(sentiment))

	first := hub.SynchronizeAll(context.Background())
	assert.Empty(t, first.Trends)

	// Points rise, a brand new stat appears, sentiment holds steady
	proj.setData(&feeds.SourceData{
		SourceID: "statline", Kind: feeds.KindProjections, FetchedAt: time.Now(),
		Projections: []feeds.ProjectionRow{
			{EntityID: "player-1", Stats: map[string]float64{"points": 25.0, "assists": 5.0}},
		},
	})

	second := hub.SynchronizeAll(context.Background())

	points, ok := second.Trends["player-1:points"]
	require.True(t, ok)
	assert.InDelta(t, 25.0, points.Value, 1e-9)
	assert.InDelta(t, 5.0, points.Change, 1e-9)
	assert.InDelta(t, 0.25, points.Significance, 1e-9)
	assert.Equal(t, models.TrendUp, points.Direction)

	assert.NotContains(t, second.Trends, "player-1:assists", "a trend needs two observations")

	score, ok := second.Trends["player-1:sentiment_score"]
	require.True(t, ok)
	assert.Equal(t, models.TrendStable, score.Direction)
	assert.Zero(t, score.Change)
}

func TestDataIntegrationHub_OddsMovementAcrossCycles(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	odds := &fakeAdapter{
		id: "oddsboard", kind: feeds.KindOdds, available: true,
		data: &feeds.SourceData{
			SourceID: "oddsboard", Kind: feeds.KindOdds, FetchedAt: time.Now(),
			Odds: []feeds.OddsRow{{MarketID: "game-1", Markets: map[string]float64{"home": 1.8, "away": 2.0}}},
		},
	}
	require.NoError(t, hub.RegisterSource(odds))

	hub.SynchronizeAll(context.Background())

	odds.setData(&feeds.SourceData{
		SourceID: "oddsboard", Kind: feeds.KindOdds, FetchedAt: time.Now(),
		Odds: []feeds.OddsRow{{MarketID: "game-1", Markets: map[string]float64{"home": 2.0, "away": 2.2}}},
	})
	second := hub.SynchronizeAll(context.Background())

	movement := second.Odds["game-1"].Movement
	assert.Equal(t, models.TrendUp, movement.Direction)
	assert.InDelta(t, 0.2, movement.Magnitude, 1e-9)
}

func TestDataIntegrationHub_Correlations(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	require.NoError(t, hub.RegisterSource(projectionsAdapter("statline", map[string]map[string]float64{
		"alpha": {"points": 10.0},
		"beta":  {"points": 20.0},
	})))
	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "pulsewire", kind: feeds.KindSentiment, available: true,
		data: &feeds.SourceData{
			SourceID: "pulsewire", Kind: feeds.KindSentiment, FetchedAt: time.Now(),
			Sentiment: []feeds.SentimentRow{
				{EntityID: "alpha", Score: 0.2, Volume: 100},
				{EntityID: "beta", Score: 0.8, Volume: 100},
			},
		},
	}))
	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "trainingroom", kind: feeds.KindInjuries, available: true,
		data: &feeds.SourceData{
			SourceID: "trainingroom", Kind: feeds.KindInjuries, FetchedAt: time.Now(),
			Injuries: []feeds.InjuryRow{
				{EntityID: "alpha", Status: "out", Impact: 0.9},
				{EntityID: "beta", Status: "probable", Impact: 0.1},
			},
		},
	}))

	snapshot := hub.SynchronizeAll(context.Background())

	// Sentiment rises with projections, injuries move against them
	assert.InDelta(t, 1.0, snapshot.Correlations["sentiment_projection"], 1e-9)
	assert.InDelta(t, -1.0, snapshot.Correlations["injury_projection"], 1e-9)
}

func TestDataIntegrationHub_UnknownKindMergesGenerically(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	require.NoError(t, hub.RegisterSource(&fakeAdapter{
		id: "mystery", kind: feeds.SourceKind("telemetry"), available: true,
		data: &feeds.SourceData{
			SourceID: "mystery", Kind: feeds.SourceKind("telemetry"), FetchedAt: time.Now(),
			Raw: map[string]any{"payload": "opaque"},
		},
	}))

	snapshot := hub.SynchronizeAll(context.Background())

	require.Contains(t, snapshot.Unrecognized, "mystery")
	raw, ok := snapshot.Unrecognized["mystery"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "opaque", raw["payload"])

	// Unknown kinds score the sparse confidence tier
	metrics := hub.GetSourceMetrics()
	assert.InDelta(t, (1.0+0.5)/2, metrics["mystery"].DataQuality, 1e-9)
}

func TestDataIntegrationHub_SubscribersNotified(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)
	require.NoError(t, hub.RegisterSource(projectionsAdapter("statline", map[string]map[string]float64{
		"player-1": {"points": 20.0},
	})))

	sub := &captureSubscriber{}
	hub.Subscribe(sub)

	snapshot := hub.SynchronizeAll(context.Background())

	require.Equal(t, 1, sub.count())
	assert.Same(t, snapshot, sub.events[0].Data)
	assert.Equal(t, snapshot.Timestamp, sub.events[0].Timestamp)
}

func TestDataIntegrationHub_SetSyncInterval(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)

	assert.Equal(t, time.Hour, hub.SyncInterval())

	hub.SetSyncInterval(10 * time.Second)
	assert.Equal(t, 10*time.Second, hub.SyncInterval())

	hub.SetSyncInterval(0)
	assert.Equal(t, 10*time.Second, hub.SyncInterval(), "non-positive intervals are ignored")
}

func TestDataIntegrationHub_StartStop(t *testing.T) {
	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), nil, nil)
	require.NoError(t, hub.RegisterSource(projectionsAdapter("statline", map[string]map[string]float64{
		"player-1": {"points": 20.0},
	})))

	require.NoError(t, hub.Start(context.Background()))
	assert.Error(t, hub.Start(context.Background()), "second start is rejected")

	require.Eventually(t, func() bool {
		return hub.SyncCount() >= 1
	}, 2*time.Second, 10*time.Millisecond, "immediate sync never ran")

	hub.Stop()
	hub.Stop() // second stop is a no-op

	count := hub.SyncCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, hub.SyncCount(), "no cycles after stop")
}

func TestDataIntegrationHub_StartRestoresSnapshotFromCache(t *testing.T) {
	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	snapshots := cache.NewSnapshotCache(redisClient, time.Hour, nil)

	warm := &models.IntegratedData{
		Timestamp: time.Now().Add(-time.Minute),
		Projections: map[string]models.EntityProjection{
			"player-1": {Stats: map[string]float64{"points": 18.0}},
		},
	}
	snapshots.SaveSnapshot(context.Background(), warm)

	hub := NewDataIntegrationHub(newTestConfig(), newTestLogger(), snapshots, nil)
	gate := make(chan struct{})
	require.NoError(t, hub.RegisterSource(&gatedAdapter{
		id: "statline", kind: feeds.KindProjections, gate: gate,
		data: &feeds.SourceData{SourceID: "statline", Kind: feeds.KindProjections, FetchedAt: time.Now()},
	}))

	require.NoError(t, hub.Start(context.Background()))
	defer hub.Stop()

	// The first sync is parked on the gated adapter, so reads serve the
	// restored snapshot.
	restored := hub.GetIntegratedData()
	require.NotNil(t, restored)
	assert.Contains(t, restored.Projections, "player-1")

	close(gate)
	require.Eventually(t, func() bool {
		return hub.SyncCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
