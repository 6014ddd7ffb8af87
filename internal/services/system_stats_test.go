package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemStatsCollector_Collect(t *testing.T) {
	sc := NewSystemStatsCollector(newTestConfig(), newTestLogger())
	sc.sampleWindow = 10 * time.Millisecond

	assert.True(t, sc.Latest().CollectedAt.IsZero(), "no sample before first collect")

	stats, err := sc.Collect(context.Background())
	require.NoError(t, err)

	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapAllocMB)
	assert.GreaterOrEqual(t, stats.MemoryPercent, 0.0)
	assert.False(t, stats.CollectedAt.IsZero())

	assert.Equal(t, stats, sc.Latest())
}

func TestSystemStatsCollector_StartStop(t *testing.T) {
	cfg := newTestConfig()
	cfg.Monitor.ResourceLogInterval = "20ms"
	sc := NewSystemStatsCollector(cfg, newTestLogger())
	sc.sampleWindow = time.Millisecond

	sc.Start(context.Background())
	sc.Start(context.Background()) // second start is a no-op

	require.Eventually(t, func() bool {
		return !sc.Latest().CollectedAt.IsZero()
	}, 2*time.Second, 10*time.Millisecond, "periodic collection never ran")

	sc.Stop()
	sc.Stop() // second stop is a no-op

	last := sc.Latest().CollectedAt
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, last, sc.Latest().CollectedAt, "no samples after stop")
}
