package storage

import (
	"sync"
	"time"
)

// entryCache is a write-through, TTL-bounded cache keyed by entity id, with
// a per-entity size cap. Reads that hit return the cached value without
// touching sql.DB; writes update both the cache and (by the caller, via
// WriteThrough) the backing table in the same call. The debounce-free
// write-through shape is grounded on internal/persistence/store.go's
// JSONStore, generalized from its single whole-state map to one bounded
// cache per entity kind.
type entryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	order   []string // insertion order, oldest first, for eviction
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

func newEntryCache(ttl time.Duration, maxSize int) *entryCache {
	return &entryCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]cacheEntry),
	}
}

func (c *entryCache) get(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *entryCache) put(id string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
	for len(c.entries) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *entryCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *entryCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cache layers write-through caches over the hot entity tables: agents and
// issues are read far more often than they're written in a coordination
// loop, so both get a bounded cache; the rest of the schema is read cold
// enough that a cache only adds staleness risk.
type Cache struct {
	agents *entryCache
	issues *entryCache
	hits   int64
	misses int64
	mu     sync.Mutex
}

// NewCache builds a cache with the given per-entity size cap and TTL.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		agents: newEntryCache(ttl, maxSize),
		issues: newEntryCache(ttl, maxSize),
	}
}

func (c *Cache) recordHit()  { c.mu.Lock(); c.hits++; c.mu.Unlock() }
func (c *Cache) recordMiss() { c.mu.Lock(); c.misses++; c.mu.Unlock() }

// HitRate returns the fraction of lookups satisfied from cache, for the
// performance report (spec §4.4).
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
