package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itzcole03/A1forBolt-sub001/internal/models"
	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
)

const (
	snapshotKey  = "integration:snapshot:latest"
	sourcePrefix = "integration:source:"
)

// Analytics categories for snapshot cache lookups
const (
	categorySnapshot = "snapshot"
	categorySource   = "source"
)

// snapshotEnvelope wraps a cached snapshot with cache metadata
type snapshotEnvelope struct {
	Snapshot *models.IntegratedData `json:"snapshot"`
	CachedAt time.Time              `json:"cached_at"`
}

// sourceEnvelope wraps a cached source payload with cache metadata
type sourceEnvelope struct {
	Payload  *feeds.SourceData `json:"payload"`
	CachedAt time.Time         `json:"cached_at"`
}

// SnapshotCache persists the latest integrated snapshot and raw source
// payloads in Redis so a restarted process can serve data before its first
// sync cycle completes. All operations are best-effort: a Redis failure is
// logged and swallowed, never propagated into the sync path.
type SnapshotCache struct {
	redis     *redis.Client
	ttl       time.Duration
	analytics *CacheAnalytics
}

// NewSnapshotCache creates a Redis-backed snapshot cache. Analytics is
// optional; nil disables hit/miss tracking.
func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration, analytics *CacheAnalytics) *SnapshotCache {
	return &SnapshotCache{
		redis:     redisClient,
		ttl:       ttl,
		analytics: analytics,
	}
}

// SaveSnapshot stores the latest integrated snapshot
func (c *SnapshotCache) SaveSnapshot(ctx context.Context, snapshot *models.IntegratedData) {
	entry := snapshotEnvelope{
		Snapshot: snapshot,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error serializing snapshot: %v", err)
		return
	}

	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		log.Printf("Redis error caching snapshot: %v", err)
	}
}

// LoadSnapshot retrieves the last cached snapshot, if any
func (c *SnapshotCache) LoadSnapshot(ctx context.Context) (*models.IntegratedData, bool) {
	data, err := c.redis.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		c.miss(categorySnapshot)
		return nil, false
	}
	if err != nil {
		log.Printf("Redis error loading snapshot: %v", err)
		c.miss(categorySnapshot)
		return nil, false
	}

	var entry snapshotEnvelope
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		log.Printf("Error deserializing cached snapshot: %v", err)
		c.miss(categorySnapshot)
		return nil, false
	}

	c.hit(categorySnapshot)
	return entry.Snapshot, true
}

// SaveSourcePayload stores one source's last normalized payload
func (c *SnapshotCache) SaveSourcePayload(ctx context.Context, payload *feeds.SourceData) {
	entry := sourceEnvelope{
		Payload:  payload,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error serializing payload for %s: %v", payload.SourceID, err)
		return
	}

	if err := c.redis.Set(ctx, sourcePrefix+payload.SourceID, data, c.ttl).Err(); err != nil {
		log.Printf("Redis error caching payload for %s: %v", payload.SourceID, err)
	}
}

// LoadSourcePayload retrieves one source's last cached payload, if any
func (c *SnapshotCache) LoadSourcePayload(ctx context.Context, sourceID string) (*feeds.SourceData, bool) {
	data, err := c.redis.Get(ctx, sourcePrefix+sourceID).Result()
	if err == redis.Nil {
		c.miss(categorySource)
		return nil, false
	}
	if err != nil {
		log.Printf("Redis error loading payload for %s: %v", sourceID, err)
		c.miss(categorySource)
		return nil, false
	}

	var entry sourceEnvelope
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		log.Printf("Error deserializing cached payload for %s: %v", sourceID, err)
		c.miss(categorySource)
		return nil, false
	}

	c.hit(categorySource)
	return entry.Payload, true
}

// Clear removes the cached snapshot and all cached source payloads
func (c *SnapshotCache) Clear(ctx context.Context) error {
	keys := []string{snapshotKey}

	iter := c.redis.Scan(ctx, 0, sourcePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	return nil
}

func (c *SnapshotCache) hit(category string) {
	if c.analytics != nil {
		c.analytics.RecordHit(category)
	}
}

func (c *SnapshotCache) miss(category string) {
	if c.analytics != nil {
		c.analytics.RecordMiss(category)
	}
}
