package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
)

func newTestCache(t *testing.T) (*SnapshotCache, *CacheAnalytics, *miniredis.Miniredis) {
	t.Helper()

	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisServer.Addr(),
	})
	t.Cleanup(func() { _ = redisClient.Close() })

	analytics := NewCacheAnalytics(redisClient)
	return NewSnapshotCache(redisClient, time.Hour, analytics), analytics, redisServer
}

func TestSnapshotCache_SaveLoadSnapshot(t *testing.T) {
	cache, analytics, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.LoadSnapshot(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(1), analytics.GetStats("snapshot").Misses)

	snapshot := &models.IntegratedData{
		Timestamp: time.Now(),
		Projections: map[string]models.EntityProjection{
			"player-1": {
				Stats:      map[string]float64{"points": 25.5, "rebounds": 10},
				Confidence: 0.75,
			},
		},
		Sentiment:    map[string]models.EntitySentiment{},
		Odds:         map[string]models.MarketOdds{},
		Injuries:     map[string]models.InjuryReport{},
		Trends:       map[string]models.TrendData{},
		Correlations: map[string]float64{"sentiment_projection": 0.8},
	}
	cache.SaveSnapshot(ctx, snapshot)

	loaded, ok := cache.LoadSnapshot(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, snapshot.Timestamp, loaded.Timestamp, time.Second)
	assert.InDelta(t, 25.5, loaded.Projections["player-1"].Stats["points"], 1e-9)
	assert.InDelta(t, 0.75, loaded.Projections["player-1"].Confidence, 1e-9)
	assert.InDelta(t, 0.8, loaded.Correlations["sentiment_projection"], 1e-9)

	assert.Equal(t, int64(1), analytics.GetStats("snapshot").Hits)
}

func TestSnapshotCache_SourcePayloadRoundTrip(t *testing.T) {
	cache, analytics, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.LoadSourcePayload(ctx, "statline")
	assert.False(t, ok)

	payload := &feeds.SourceData{
		SourceID:  "statline",
		Kind:      feeds.KindProjections,
		FetchedAt: time.Now(),
		Projections: []feeds.ProjectionRow{
			{EntityID: "player-1", Stats: map[string]float64{"points": 22.0}},
		},
	}
	cache.SaveSourcePayload(ctx, payload)

	loaded, ok := cache.LoadSourcePayload(ctx, "statline")
	require.True(t, ok)
	assert.Equal(t, "statline", loaded.SourceID)
	assert.Equal(t, feeds.KindProjections, loaded.Kind)
	require.Len(t, loaded.Projections, 1)
	assert.InDelta(t, 22.0, loaded.Projections[0].Stats["points"], 1e-9)

	// A different source stays a miss
	_, ok = cache.LoadSourcePayload(ctx, "oddsboard")
	assert.False(t, ok)

	stats := analytics.GetStats("source")
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestSnapshotCache_Clear(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	cache.SaveSnapshot(ctx, &models.IntegratedData{Timestamp: time.Now()})
	cache.SaveSourcePayload(ctx, &feeds.SourceData{SourceID: "statline", Kind: feeds.KindProjections})
	cache.SaveSourcePayload(ctx, &feeds.SourceData{SourceID: "pulsewire", Kind: feeds.KindSentiment})

	require.NoError(t, cache.Clear(ctx))

	_, ok := cache.LoadSnapshot(ctx)
	assert.False(t, ok)
	_, ok = cache.LoadSourcePayload(ctx, "statline")
	assert.False(t, ok)
	_, ok = cache.LoadSourcePayload(ctx, "pulsewire")
	assert.False(t, ok)
}

func TestSnapshotCache_NilAnalytics(t *testing.T) {
	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cache := NewSnapshotCache(redisClient, time.Hour, nil)
	ctx := context.Background()

	cache.SaveSnapshot(ctx, &models.IntegratedData{Timestamp: time.Now()})
	_, ok := cache.LoadSnapshot(ctx)
	assert.True(t, ok)
}

func TestSnapshotCache_RedisDownIsBestEffort(t *testing.T) {
	cache, _, redisServer := newTestCache(t)
	ctx := context.Background()

	redisServer.Close()

	// Saves are swallowed, loads report a miss
	cache.SaveSnapshot(ctx, &models.IntegratedData{Timestamp: time.Now()})
	_, ok := cache.LoadSnapshot(ctx)
	assert.False(t, ok)
}
