package dataprocessing

import (
	"sync"

	"hilirisasi/pkg/contracts/domain"
)

// CacheKey identifies one version of one parsed source. Fingerprint is the
// content hash of the workbook bytes.
type CacheKey struct {
	Source      string
	Layout      string
	Fingerprint string
}

type cacheSlot struct {
	Source string
	Layout string
}

type cacheEntry struct {
	fingerprint string
	table       *domain.Table
}

// TableCache holds the latest parsed table per (source, layout). Putting a
// new fingerprint replaces the previous version. Tables are immutable, so
// handing the same pointer to many readers is safe.
type TableCache struct {
	mu      sync.RWMutex
	entries map[cacheSlot]cacheEntry
}

// NewTableCache creates an empty cache.
func NewTableCache() *TableCache {
	return &TableCache{entries: make(map[cacheSlot]cacheEntry)}
}

// Get returns the table cached under key, if its fingerprint still matches.
func (c *TableCache) Get(key CacheKey) (*domain.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheSlot{key.Source, key.Layout}]
	if !ok || e.fingerprint != key.Fingerprint {
		return nil, false
	}
	return e.table, true
}

// Put stores table under key. Concurrent loads of the same version may both
// call Put; the tables are equivalent so the last write wins.
func (c *TableCache) Put(key CacheKey, table *domain.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheSlot{key.Source, key.Layout}] = cacheEntry{fingerprint: key.Fingerprint, table: table}
}

// Latest returns the most recently stored table of a source regardless of
// fingerprint. The service falls back to it when a reload fails.
func (c *TableCache) Latest(source, layout string) (*domain.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheSlot{source, layout}]
	return e.table, ok
}

// Invalidate drops every cached version of source, under any layout, and
// reports how many entries were removed.
func (c *TableCache) Invalidate(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for slot := range c.entries {
		if slot.Source == source {
			delete(c.entries, slot)
			n++
		}
	}
	return n
}

// Purge empties the cache.
func (c *TableCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached tables.
func (c *TableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
