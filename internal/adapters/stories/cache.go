// Package stories serves the community stories feed through a short-lived
// in-process cache.
package stories

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultCacheName = "stories"
	flightKey        = "value"
)

// FetchFunc loads a fresh value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache memoizes one expensive fetch for a TTL. Concurrent misses share a
// single in-flight fetch. If a refresh fails and an older value exists, the
// older value is served.
type Cache[T any] struct {
	fetch FetchFunc[T]
	cfg   cacheConfig

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	has       bool

	group singleflight.Group
}

// NewCache wraps fetch.
func NewCache[T any](fetch FetchFunc[T], opts ...CacheOption) *Cache[T] {
	cfg := cacheConfig{
		name:   defaultCacheName,
		ttl:    defaultTTL,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[T]{fetch: fetch, cfg: cfg}
}

// Get returns the cached value, fetching it when absent or expired.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.fresh(); ok {
		metrics.RecordCacheLookup(c.cfg.name, "hit")
		return v, nil
	}
	metrics.RecordCacheLookup(c.cfg.name, "miss")

	// The fetch outlives any one caller; each caller only waits on its own ctx.
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RecordCacheLookup(c.cfg.name, "shared")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the cached value so the next Get fetches.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value, c.has, c.fetchedAt = zero, false, time.Time{}
}

// FetchedAt reports when the current value was loaded.
func (c *Cache[T]) FetchedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt, c.has
}

func (c *Cache[T]) fresh() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.has && c.cfg.now().Sub(c.fetchedAt) < c.cfg.ttl {
		return c.value, true
	}
	var zero T
	return zero, false
}

func (c *Cache[T]) refresh(ctx context.Context) (any, error) {
	// another flight may have landed while this caller queued
	if v, ok := c.fresh(); ok {
		return v, nil
	}

	v, err := c.fetch(ctx)
	if err != nil {
		c.mu.RLock()
		stale, has := c.value, c.has
		c.mu.RUnlock()
		if has {
			metrics.RecordCacheLookup(c.cfg.name, "stale")
			c.cfg.logger.Warn(ctx, "refresh failed; serving previous value",
				logger.String("cache", c.cfg.name), logger.Error(err))
			return stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.value, c.fetchedAt, c.has = v, c.cfg.now(), true
	c.mu.Unlock()
	metrics.RecordCacheLookup(c.cfg.name, "refresh")
	return v, nil
}
