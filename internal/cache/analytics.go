package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// analyticsReportKey is where periodic stat reports land in Redis
const analyticsReportKey = "cache:analytics:stats"

// CacheStats summarizes hit/miss counters for one category
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheMetrics combines per-category counters with Redis server state
type CacheMetrics struct {
	Overall          CacheStats            `json:"overall"`
	ByCategory       map[string]CacheStats `json:"by_category"`
	RedisInfo        map[string]string     `json:"redis_info"`
	MemoryUsage      int64                 `json:"memory_usage_bytes"`
	ConnectedClients int64                 `json:"connected_clients"`
	KeyCount         int64                 `json:"key_count"`
}

// CacheAnalytics tracks cache performance by category, with an "overall"
// rollup maintained alongside every category counter.
type CacheAnalytics struct {
	redisClient *redis.Client

	mu    sync.RWMutex
	stats map[string]*CacheStats
}

// NewCacheAnalytics creates an analytics tracker. The Redis client is only
// needed for GetMetrics and periodic reporting; counters work without it.
func NewCacheAnalytics(redisClient *redis.Client) *CacheAnalytics {
	return &CacheAnalytics{
		redisClient: redisClient,
		stats:       make(map[string]*CacheStats),
	}
}

// RecordHit records a cache hit for the given category
func (c *CacheAnalytics) RecordHit(category string) {
	c.record(category, true)
}

// RecordMiss records a cache miss for the given category
func (c *CacheAnalytics) RecordMiss(category string) {
	c.record(category, false)
}

func (c *CacheAnalytics) record(category string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range []string{category, "overall"} {
		stats := c.stats[key]
		if stats == nil {
			stats = &CacheStats{}
			c.stats[key] = stats
		}
		if hit {
			stats.Hits++
		} else {
			stats.Misses++
		}
		stats.TotalOps++
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalOps)
		stats.LastUpdated = time.Now()
	}
}

// GetStats returns counters for one category, zero if never recorded
func (c *CacheAnalytics) GetStats(category string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if stats, exists := c.stats[category]; exists {
		return *stats
	}
	return CacheStats{}
}

// GetAllStats returns a copy of every category's counters
func (c *CacheAnalytics) GetAllStats() map[string]CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]CacheStats, len(c.stats))
	for category, stats := range c.stats {
		result[category] = *stats
	}
	return result
}

// GetMetrics returns counters combined with Redis memory, client, and key
// state read from INFO.
func (c *CacheAnalytics) GetMetrics(ctx context.Context) (*CacheMetrics, error) {
	allStats := c.GetAllStats()

	redisInfo, err := c.redisClient.Info(ctx, "memory", "clients", "keyspace").Result()
	if err != nil {
		return nil, err
	}
	infoMap := parseRedisInfo(redisInfo)

	memoryUsage, _ := strconv.ParseInt(infoMap["used_memory"], 10, 64)
	connectedClients, _ := strconv.ParseInt(infoMap["connected_clients"], 10, 64)
	keyCount, _ := c.redisClient.DBSize(ctx).Result()

	metrics := &CacheMetrics{
		Overall:          allStats["overall"],
		ByCategory:       allStats,
		RedisInfo:        infoMap,
		MemoryUsage:      memoryUsage,
		ConnectedClients: connectedClients,
		KeyCount:         keyCount,
	}
	return metrics, nil
}

// parseRedisInfo parses the key:value lines of a Redis INFO response
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return result
}

// ResetStats clears all counters
func (c *CacheAnalytics) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*CacheStats)
}

// StartPeriodicReporting writes counters to Redis on an interval until the
// context ends, so hit rates survive restarts for inspection.
func (c *CacheAnalytics) StartPeriodicReporting(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.reportStats(ctx)
			}
		}
	}()
}

func (c *CacheAnalytics) reportStats(ctx context.Context) {
	statsJSON, err := json.Marshal(c.GetAllStats())
	if err != nil {
		return
	}
	c.redisClient.Set(ctx, analyticsReportKey, statsJSON, 24*time.Hour)
}
