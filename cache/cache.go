package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/sitepulse/models"
)

const (
	sweepInterval = 5 * time.Minute
	retention     = time.Hour
)

// entry holds a cached report with its creation timestamp.
type entry struct {
	report    models.AnalyzeResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for audit reports. Performance
// measurements are never stored here; every measurement runs fresh.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
}

// New creates a new Cache with the given maximum number of entries.
func New(maxEntries int) *Cache {
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key generates a cache key from the URL and fetch mode.
func Key(url, fetchMode string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(fetchMode))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a copy of a cached report if it exists and is younger than
// maxAge. maxAge is in milliseconds; if maxAge <= 0, no lookup is performed.
func (c *Cache) Get(key string, maxAgeMs int) (*models.AnalyzeResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}

	report := e.report
	return &report, true
}

// Set stores a copy of report. If the cache is at capacity, a random entry
// is evicted to make room.
func (c *Cache) Set(key string, report *models.AnalyzeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 {
		return
	}

	// Map iteration order is random in Go.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		report:    *report,
		createdAt: c.now(),
	}
}

// Len returns the number of stored reports.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Sweep evicts entries older than one hour and returns how many it removed.
func (c *Cache) Sweep() int {
	cutoff := c.now().Add(-retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
			n++
		}
	}
	return n
}

// SweepLoop runs Sweep every five minutes until ctx is done.
func (c *Cache) SweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
