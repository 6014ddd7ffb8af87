package feeds

import (
	"context"
	"sync"
	"time"
)

// CachedAdapter wraps a SourceAdapter with a TTL response cache so repeated
// fetches inside the TTL window reuse the last good payload. This satisfies
// the adapter-owns-caching contract without the wrapped adapter knowing.
type CachedAdapter struct {
	inner SourceAdapter
	ttl   time.Duration

	mu        sync.Mutex
	cached    *SourceData
	fetchedAt time.Time
}

// NewCachedAdapter wraps inner with a TTL cache; ttl <= 0 disables caching
func NewCachedAdapter(inner SourceAdapter, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{inner: inner, ttl: ttl}
}

func (c *CachedAdapter) ID() string {
	return c.inner.ID()
}

func (c *CachedAdapter) Kind() SourceKind {
	return c.inner.Kind()
}

func (c *CachedAdapter) IsAvailable(ctx context.Context) bool {
	c.mu.Lock()
	fresh := c.cached != nil && c.ttl > 0 && time.Since(c.fetchedAt) < c.ttl
	c.mu.Unlock()
	if fresh {
		return true
	}
	return c.inner.IsAvailable(ctx)
}

// Fetch returns the cached payload while fresh, otherwise delegates. A failed
// delegate fetch never evicts the previous good payload; staleness is left to
// the TTL so a flapping provider degrades gracefully.
func (c *CachedAdapter) Fetch(ctx context.Context) (*SourceData, error) {
	c.mu.Lock()
	if c.cached != nil && c.ttl > 0 && time.Since(c.fetchedAt) < c.ttl {
		data := c.cached
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = data
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return data, nil
}
