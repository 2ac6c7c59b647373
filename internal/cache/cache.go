/*
Package cache implements the TTL Cache described in SPEC_FULL.md §6: an
in-memory store for expensive derived results (sector data, correlation
tables, extracted optimization summaries), keyed by deterministic strings,
that hands out deep copies so a caller mutating a returned value can never
corrupt what's stored.

Deep copies go through a JSON round-trip — the technique the system this
spec was distilled from uses (serialize-then-deserialize), carried over
here regardless of implementation language per spec.md §9.
*/
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/metrics"
)

type item struct {
	data    []byte
	expires time.Time // zero means "does not expire"
}

func (it *item) expired(now time.Time) bool {
	return !it.expires.IsZero() && now.After(it.expires)
}

// Cache is a fine-grained-locked TTL store. A background sweeper trims
// expired entries on an interval; Get also purges on contact so the
// sweeper is purely a memory-reclamation optimization, never required for
// correctness.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*item
	stopCh chan struct{}
}

// New creates an empty Cache and starts its background sweeper, which
// scans for expired entries every sweepInterval. The returned Cache must
// be stopped with Stop when no longer needed.
func New(sweepInterval time.Duration) *Cache {
	c := &Cache{
		items:  make(map[string]*item),
		stopCh: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Stop halts the background sweeper.
func (c *Cache) Stop() {
	close(c.stopCh)
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logging.WithComponent("cache")
	for {
		select {
		case <-ticker.C:
			removed := c.sweep()
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("swept expired cache entries")
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) sweep() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Set stores a deep copy of value under key with the given ttl. ttl <= 0
// means "does not expire". An empty key is rejected with an
// apperr.KindInvalidRequest error. A value that cannot be JSON-marshaled
// is rejected with an apperr.KindInternal error rather than silently
// stored in a form Get could never reproduce.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return apperr.New(apperr.KindInvalidRequest, "cache key must not be empty")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "value is not serializable", err)
	}

	it := &item{data: data}
	if ttl > 0 {
		it.expires = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

// Get deep-copies the value stored under key into out (a pointer), the
// same contract as json.Unmarshal. It reports ok=false if the key is
// absent or has expired; an expired entry is removed as a side effect.
func (c *Cache) Get(key string, out interface{}) (ok bool, err error) {
	c.mu.RLock()
	it, present := c.items[key]
	c.mu.RUnlock()

	if !present {
		metrics.CacheMissesTotal.Inc()
		return false, nil
	}
	if it.expired(time.Now()) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		metrics.CacheMissesTotal.Inc()
		return false, nil
	}

	if err := json.Unmarshal(it.data, out); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "cached value could not be decoded", err)
	}
	metrics.CacheHitsTotal.Inc()
	return true, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]*item)
	c.mu.Unlock()
}

// Keys returns the non-expired keys in unspecified order.
func (c *Cache) Keys() []string {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k, it := range c.items {
		if !it.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}
