package loader

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Cache keeps loaded features in memory with LRU eviction, so that building
// several charts over the same window does not re-read the shapefiles.
//
// Memory use is estimated from the vertex count of each feature. A Cache is
// safe for concurrent use.
type Cache struct {
	maxMemory  int64 // bytes; 0 means unlimited
	usedMemory int64
	entries    map[string]*cacheEntry
	lru        *list.List // most recent at front
	mu         sync.RWMutex
}

type cacheEntry struct {
	key          string
	feature      *Feature // nil when the file had nothing inside the window
	memorySize   int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// NewCache creates a cache with the given memory limit in bytes.
func NewCache(maxMemoryBytes int64) *Cache {
	return &Cache{
		maxMemory: maxMemoryBytes,
		entries:   make(map[string]*cacheEntry),
		lru:       list.New(),
	}
}

// Get returns the cached feature for key, calling load on a miss. The second
// result reports whether the value came from the cache.
func (c *Cache) Get(key string, load func() (*Feature, error)) (*Feature, bool, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.mu.Unlock()
		return entry.feature, true, nil
	}
	c.mu.Unlock()

	f, err := load()
	if err != nil {
		return nil, false, err
	}

	// A feature too large to cache is still returned.
	_ = c.Add(key, f)
	return f, false, nil
}

// Add stores f under key, evicting least recently used entries as needed.
func (c *Cache) Add(key string, f *Feature) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.usedMemory += estimateFeatureMemory(f) - entry.memorySize
		entry.feature = f
		entry.memorySize = estimateFeatureMemory(f)
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		return nil
	}

	size := estimateFeatureMemory(f)
	if c.maxMemory > 0 && size > c.maxMemory {
		return fmt.Errorf("feature too large for cache (%d bytes > %d bytes max)", size, c.maxMemory)
	}
	if c.maxMemory > 0 {
		for c.usedMemory+size > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &cacheEntry{
		key:          key,
		feature:      f,
		memorySize:   size,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.usedMemory += size
	return nil
}

// evictLRU must be called with c.mu held.
func (c *Cache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	c.usedMemory -= entry.memorySize
}

// Remove drops key from the cache.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.lru.Remove(entry.element)
		delete(c.entries, key)
		c.usedMemory -= entry.memorySize
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// CacheStats holds cache usage figures.
type CacheStats struct {
	Entries     int
	UsedMemory  int64
	MaxMemory   int64
	TotalAccess int
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, entry := range c.entries {
		total += entry.accessCount
	}
	return CacheStats{
		Entries:     len(c.entries),
		UsedMemory:  c.usedMemory,
		MaxMemory:   c.maxMemory,
		TotalAccess: total,
	}
}

// estimateFeatureMemory approximates the heap held by f: a fixed overhead
// plus 16 bytes per vertex, counted once for the geometry and once for the
// flattened coordinates.
func estimateFeatureMemory(f *Feature) int64 {
	size := int64(256)
	if f == nil {
		return size
	}
	size += int64(len(f.Coordinates)) * 16 * 2
	return size
}
