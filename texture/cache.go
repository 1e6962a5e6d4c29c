// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package texture implements the renderer's tiled mipmap texture cache
// and the three map kinds shading reads through it: plain texture maps,
// cube-face/latlong environment maps, and shadow depth maps.
package texture

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/aqsisrender/core/math/geom"
)

// segmentKey identifies one tile of one mip level of one texture file,
// the cache's eviction granularity.
type segmentKey struct {
	Path        string
	Level       int
	TileX, TileY int
}

// segment is one cached tile: its pixel and opacity data plus the byte
// count it charges against the cache's memory budget.
type segment struct {
	key      segmentKey
	w, h     int
	pix      []geom.Color
	opac     []float64
	bytes    int64
}

// Cache is the shared, tile-granular LRU the texture, environment, and
// shadow map types all read through. It is safe for concurrent use by
// multiple rendering workers.
//
// hashicorp/golang-lru supplies the count-based LRU ordering and
// eviction callbacks; Cache layers byte-budget accounting and hit/miss
// counters on top, since golang-lru itself has no notion of a memory
// budget.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	budget int64
	used   int64

	hits   uint64
	misses uint64
}

// DefaultTileSize is the tile edge length, in texels, used when slicing
// a decoded mip level into cache segments.
const DefaultTileSize = 64

// NewCache returns a Cache with the given soft memory budget in bytes.
// The underlying LRU capacity is sized generously; the LRU's own count limit only bounds pathological growth
// between CriticalMeasure calls.
func NewCache(budgetBytes int64) *Cache {
	c := &Cache{budget: budgetBytes}
	l, _ := lru.NewWithEvict(1<<20, c.onEvicted)
	c.lru = l
	return c
}

func (c *Cache) onEvicted(key, value interface{}) {
	seg := value.(*segment)
	atomic.AddInt64(&c.used, -seg.bytes)
}

// fetch returns the cached segment for key, loading it via load on a
// miss. load is called with the cache lock released so a slow tile
// decode from one texture does not stall lookups against others.
func (c *Cache) fetch(key segmentKey, load func() (*segment, error)) (*segment, error) {
	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return v.(*segment), nil
	}
	c.misses++
	c.mu.Unlock()

	seg, err := load()
	if err != nil {
		return nil, err
	}
	seg.key = key

	c.mu.Lock()
	c.lru.Add(key, seg)
	atomic.AddInt64(&c.used, seg.bytes)
	c.mu.Unlock()
	c.CriticalMeasure()
	return seg, nil
}

// CriticalMeasure evicts least-recently-used segments until the cache's
// tracked usage is at or below its configured budget.
func (c *Cache) CriticalMeasure() {
	for {
		c.mu.Lock()
		over := c.budget > 0 && atomic.LoadInt64(&c.used) > c.budget && c.lru.Len() > 0
		if !over {
			c.mu.Unlock()
			return
		}
		c.lru.RemoveOldest()
		c.mu.Unlock()
	}
}

// Stats returns the cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Used reports the cache's current tracked byte usage.
func (c *Cache) Used() int64 { return atomic.LoadInt64(&c.used) }
