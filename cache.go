package facet

import (
	"sync"
)

// derivedCache is the memoization table for derived values. Entries live
// until a transitively-read field changes or the owning container resets;
// there is no TTL and no size bound.
type derivedCache struct {
	mu      sync.RWMutex
	entries map[DerivedKey]any
}

func newDerivedCache() *derivedCache {
	return &derivedCache{
		entries: make(map[DerivedKey]any),
	}
}

func (c *derivedCache) load(key DerivedKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *derivedCache) store(key DerivedKey, value any) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *derivedCache) evict(key DerivedKey) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *derivedCache) dropContainer(id string) {
	c.mu.Lock()
	for key := range c.entries {
		if key.Container == id {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *derivedCache) clear() {
	c.mu.Lock()
	c.entries = make(map[DerivedKey]any)
	c.mu.Unlock()
}

func (c *derivedCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
