// Package cache provides a small in-memory TTL cache for fetch outcomes,
// so pages shared between discovery and aggregation (the seed, at minimum)
// are fetched once per run window.
package cache

import (
	"sync"
	"time"

	"github.com/use-agent/sitedigest/models"
)

// entry holds a cached outcome with its creation timestamp.
type entry struct {
	outcome   *models.FetchOutcome
	createdAt time.Time
}

// Cache is a capacity-bound in-memory cache for fetch outcomes keyed by
// URL. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a Cache with the given capacity and entry TTL. A background
// goroutine runs every 5 minutes to evict expired entries.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}

	go c.cleanupLoop()
	return c
}

// Get retrieves a cached outcome if it exists and has not expired.
func (c *Cache) Get(url string) (*models.FetchOutcome, bool) {
	c.mu.RLock()
	e, ok := c.store[url]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		return nil, false
	}
	return e.outcome, true
}

// Set stores an outcome. If the cache is at capacity, one entry is evicted
// to make room (map iteration order is random in Go).
func (c *Cache) Set(url string, outcome *models.FetchOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[url] = &entry{
		outcome:   outcome,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.ttl)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
