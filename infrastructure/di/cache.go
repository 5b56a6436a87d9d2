package di

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache keeps query results in process until their TTL expires
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	gens  map[string]uint64
	epoch uint64
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache and starts its sweeper
func NewInMemoryCache() *InMemoryCache {
	cache := newInMemoryCache(time.Now)
	go cache.cleanupExpired(time.Minute)
	return cache
}

func newInMemoryCache(now func() time.Time) *InMemoryCache {
	return &InMemoryCache{
		items: make(map[string]cacheItem),
		gens:  make(map[string]uint64),
		now:   now,
		stop:  make(chan struct{}),
	}
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || !c.now().Before(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Set stores a value for ttl seconds. A ttl of zero or less stores nothing.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Generation returns the invalidation counter of key
func (c *InMemoryCache) Generation(ctx context.Context, key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gens[key] + c.epoch
}

// SetIfGeneration stores a value unless key was invalidated since
// generation was read
func (c *InMemoryCache) SetIfGeneration(ctx context.Context, key string, value interface{}, ttl int, generation uint64) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key]+c.epoch != generation {
		return nil
	}
	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Delete removes a value from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	c.gens[key]++
	return nil
}

// Clear removes all values from cache
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	c.epoch++
	return nil
}

// Close stops the sweeper
func (c *InMemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
