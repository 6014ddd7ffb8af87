package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
)

// goroutineWarnThreshold flags a likely goroutine leak
const goroutineWarnThreshold = 1000

// SystemStats is a point-in-time sample of host and process resource usage
type SystemStats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  float64   `json:"memory_used_mb"`
	HeapAllocMB   float64   `json:"heap_alloc_mb"`
	Goroutines    int       `json:"goroutines"`
	CollectedAt   time.Time `json:"collected_at"`
}

// SystemStatsCollector samples resource usage on an interval and logs it so
// operators can correlate sync load with system pressure. The latest sample
// is cached for the health endpoints.
type SystemStatsCollector struct {
	logger       *logrus.Logger
	interval     time.Duration
	sampleWindow time.Duration

	mu     sync.RWMutex
	latest SystemStats

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSystemStatsCollector(cfg *config.Config, logger *logrus.Logger) *SystemStatsCollector {
	return &SystemStatsCollector{
		logger:       logger,
		interval:     cfg.Monitor.ResourceLogIntervalDuration(),
		sampleWindow: time.Second,
	}
}

// Collect takes one sample, blocking for the CPU measurement window
func (sc *SystemStatsCollector) Collect(ctx context.Context) (SystemStats, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, sc.sampleWindow, false)
	if err != nil {
		return SystemStats{}, fmt.Errorf("failed to get CPU usage: %w", err)
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, fmt.Errorf("failed to get memory usage: %w", err)
	}

	var rtm runtime.MemStats
	runtime.ReadMemStats(&rtm)

	stats := SystemStats{
		MemoryPercent: memInfo.UsedPercent,
		MemoryUsedMB:  float64(memInfo.Used) / 1024 / 1024,
		HeapAllocMB:   float64(rtm.HeapAlloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		CollectedAt:   time.Now(),
	}
	if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	sc.mu.Lock()
	sc.latest = stats
	sc.mu.Unlock()

	return stats, nil
}

// Latest returns the most recent sample, zero before the first Collect
func (sc *SystemStatsCollector) Latest() SystemStats {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.latest
}

// Start begins periodic sampling until the context ends or Stop is called
func (sc *SystemStatsCollector) Start(ctx context.Context) {
	sc.runMu.Lock()
	defer sc.runMu.Unlock()
	if sc.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.running = true

	sc.wg.Add(1)
	go sc.loop(runCtx)

	sc.logger.WithField("interval", sc.interval.String()).Info("System stats collector started")
}

// Stop halts periodic sampling and waits for the loop to exit
func (sc *SystemStatsCollector) Stop() {
	sc.runMu.Lock()
	defer sc.runMu.Unlock()
	if !sc.running {
		return
	}

	sc.cancel()
	sc.wg.Wait()
	sc.running = false

	sc.logger.Info("System stats collector stopped")
}

func (sc *SystemStatsCollector) loop(ctx context.Context) {
	defer sc.wg.Done()

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := sc.Collect(ctx)
			if err != nil {
				sc.logger.WithError(err).Warn("Failed to collect system stats")
				continue
			}

			sc.logger.WithFields(logrus.Fields{
				"cpu_percent":    stats.CPUPercent,
				"memory_percent": stats.MemoryPercent,
				"heap_alloc_mb":  stats.HeapAllocMB,
				"goroutines":     stats.Goroutines,
			}).Info("System resource usage")

			if stats.Goroutines > goroutineWarnThreshold {
				sc.logger.WithField("goroutines", stats.Goroutines).Warn("Unusually high goroutine count")
			}
		}
	}
}
