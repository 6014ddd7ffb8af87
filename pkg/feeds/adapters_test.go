package feeds_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *feeds.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return feeds.NewClient(feeds.ClientOptions{BaseURL: server.URL})
}

func TestProjectionsAdapter_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projections", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"as_of": "2026-03-01T12:00:00Z",
			"players": [
				{"player_id": "p1", "projected": {"points": 24.5, "rebounds": 8.1}, "updated_at": "2026-03-01T11:55:00Z"},
				{"player_id": "", "projected": {"points": 10}},
				{"player_id": "p2", "projected": {}}
			]
		}`))
	})

	adapter := feeds.NewProjectionsAdapter("statline", client)
	assert.Equal(t, "statline", adapter.ID())
	assert.Equal(t, feeds.KindProjections, adapter.Kind())

	data, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Projections, 1)
	assert.Equal(t, "p1", data.Projections[0].EntityID)
	assert.InDelta(t, 24.5, data.Projections[0].Stats["points"], 1e-9)
	assert.Equal(t, feeds.KindProjections, data.Kind)
}

func TestProjectionsAdapter_EmptyPayloadFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"players": []}`))
	})

	adapter := feeds.NewProjectionsAdapter("statline", client)
	_, err := adapter.Fetch(context.Background())

	require.Error(t, err)
	var fetchErr *feeds.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "statline", fetchErr.SourceID)
}

func TestSentimentAdapter_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/sentiment", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("min_mentions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"window": "1h",
			"results": [
				{"subject": "p1", "score": 0.62, "mentions": 140, "trending": true, "keywords": ["hot streak"]},
				{"subject": "p2", "score": -3.5, "mentions": 40}
			]
		}`))
	})

	adapter := feeds.NewSentimentAdapter("pulsewire", client, 25)
	data, err := adapter.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, data.Sentiment, 2)
	assert.True(t, data.Sentiment[0].Trending)
	// Out-of-range provider scores are clamped to the documented bounds.
	assert.InDelta(t, -1.0, data.Sentiment[1].Score, 1e-9)
}

func TestOddsAdapter_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "us", r.URL.Query().Get("region"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"markets": [
				{"market_id": "m1", "selections": [{"name": "over", "price": 1.91}, {"name": "under", "price": 1.95}]},
				{"market_id": "m2", "selections": [{"name": "over", "price": 0}]}
			]
		}`))
	})

	adapter := feeds.NewOddsAdapter("oddsboard", client, "us")
	data, err := adapter.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, data.Odds, 1)
	assert.Equal(t, "m1", data.Odds[0].MarketID)
	assert.InDelta(t, 1.91, data.Odds[0].Markets["over"], 1e-9)
}

func TestInjuryAdapter_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"reports": [
				{"player_id": "p1", "status": "Questionable", "note": "ankle", "timeline": "day-to-day"},
				{"player_id": "p2", "status": "out", "impact": 0.95}
			]
		}`))
	})

	adapter := feeds.NewInjuryAdapter("trainingroom", client)
	data, err := adapter.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, data.Injuries, 2)
	// Missing impact falls back to the status-based default.
	assert.InDelta(t, 0.4, data.Injuries[0].Impact, 1e-9)
	assert.Equal(t, "questionable", data.Injuries[0].Status)
	assert.InDelta(t, 0.95, data.Injuries[1].Impact, 1e-9)
}

func TestAdapter_IsAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/status" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.True(t, feeds.NewProjectionsAdapter("statline", client).IsAvailable(context.Background()))
	assert.False(t, feeds.NewSentimentAdapter("pulsewire", client, 0).IsAvailable(context.Background()))
}
