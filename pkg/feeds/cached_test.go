package feeds_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter counts fetches and can be flipped into a failing state
type stubAdapter struct {
	id      string
	fetches atomic.Int64
	fail    atomic.Bool
}

func (s *stubAdapter) ID() string             { return s.id }
func (s *stubAdapter) Kind() feeds.SourceKind { return feeds.KindProjections }

func (s *stubAdapter) IsAvailable(ctx context.Context) bool {
	return !s.fail.Load()
}

func (s *stubAdapter) Fetch(ctx context.Context) (*feeds.SourceData, error) {
	s.fetches.Add(1)
	if s.fail.Load() {
		return nil, &feeds.FetchError{SourceID: s.id, Err: errors.New("boom")}
	}
	return &feeds.SourceData{
		SourceID:  s.id,
		Kind:      feeds.KindProjections,
		FetchedAt: time.Now(),
		Projections: []feeds.ProjectionRow{
			{EntityID: "p1", Stats: map[string]float64{"points": 20}},
		},
	}, nil
}

func TestCachedAdapter_ReusesFreshPayload(t *testing.T) {
	stub := &stubAdapter{id: "statline"}
	cached := feeds.NewCachedAdapter(stub, time.Minute)

	first, err := cached.Fetch(context.Background())
	require.NoError(t, err)

	second, err := cached.Fetch(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), stub.fetches.Load())
}

func TestCachedAdapter_ExpiredTTLRefetches(t *testing.T) {
	stub := &stubAdapter{id: "statline"}
	cached := feeds.NewCachedAdapter(stub, 10*time.Millisecond)

	_, err := cached.Fetch(context.Background())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.fetches.Load())
}

func TestCachedAdapter_ZeroTTLDisablesCaching(t *testing.T) {
	stub := &stubAdapter{id: "statline"}
	cached := feeds.NewCachedAdapter(stub, 0)

	_, _ = cached.Fetch(context.Background())
	_, _ = cached.Fetch(context.Background())

	assert.Equal(t, int64(2), stub.fetches.Load())
}

func TestCachedAdapter_FailureDoesNotEvict(t *testing.T) {
	stub := &stubAdapter{id: "statline"}
	cached := feeds.NewCachedAdapter(stub, 10*time.Millisecond)

	_, err := cached.Fetch(context.Background())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	stub.fail.Store(true)

	_, err = cached.Fetch(context.Background())
	assert.Error(t, err)

	// Availability still answers true while a fresh payload exists; here the
	// TTL has lapsed so it defers to the inner adapter.
	assert.False(t, cached.IsAvailable(context.Background()))
}

func TestCachedAdapter_PassthroughIdentity(t *testing.T) {
	stub := &stubAdapter{id: "statline"}
	cached := feeds.NewCachedAdapter(stub, time.Minute)

	assert.Equal(t, "statline", cached.ID())
	assert.Equal(t, feeds.KindProjections, cached.Kind())
}
