package generator

import (
	"sync"
	"time"

	"bankwatch/internal/panel"
)

const defaultCacheEntries = 16

type cacheKey struct {
	seed     int64
	dayCount int
	endDate  time.Time
}

// Cache memoises Generate results keyed on (seed, dayCount, endDate). Callers
// always receive their own copy of the panel.
type Cache struct {
	gen *Generator

	mu      sync.Mutex
	entries map[cacheKey][]panel.MetricRecord
	order   []cacheKey
	max     int
}

// NewCache wraps gen. maxEntries <= 0 selects a small default.
func NewCache(gen *Generator, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &Cache{
		gen:     gen,
		entries: make(map[cacheKey][]panel.MetricRecord),
		max:     maxEntries,
	}
}

// Generate returns the cached panel for the arguments, generating it on a miss.
func (c *Cache) Generate(seed int64, dayCount int, endDate time.Time) ([]panel.MetricRecord, error) {
	key := cacheKey{seed: seed, dayCount: dayCount, endDate: panel.Day(endDate)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if records, ok := c.entries[key]; ok {
		return append([]panel.MetricRecord(nil), records...), nil
	}

	records, err := c.gen.Generate(seed, dayCount, endDate)
	if err != nil {
		return nil, err
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = records
	c.order = append(c.order, key)

	return append([]panel.MetricRecord(nil), records...), nil
}

// Len reports the number of cached panels.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
