package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zaptalk/zaptalk/pkg/models"
)

const (
	defaultTTL        = 5 * time.Minute
	defaultMaxEntries = 1024
)

type memoryEntry struct {
	template  *models.MessageTemplate
	expiresAt time.Time
}

// MemoryCache is a bounded in-memory TTL cache. When full, the entry
// closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type MemoryOption func(*MemoryCache)

func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCache) { c.ttl = ttl }
}

func WithMaxEntries(n int) MemoryOption {
	return func(c *MemoryCache) { c.maxEntries = n }
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cache := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

func (c *MemoryCache) Get(_ context.Context, id string) (*models.MessageTemplate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, id)

		return nil, false
	}

	return entry.template, true
}

func (c *MemoryCache) Set(_ context.Context, template *models.MessageTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[template.ID] = memoryEntry{
		template:  template,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *MemoryCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

// evictOldest removes the entry closest to expiry. Caller holds the lock.
func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)

	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.expiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
