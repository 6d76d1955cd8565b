package currency

import (
	"sync"
	"time"
)

// DefaultTTL is how long a fetched UF value is served without refetching.
const DefaultTTL = 12 * time.Hour

// Rate is the UF value in CLP and when it was obtained.
type Rate struct {
	Value     float64   `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache stores the current exchange rate with a validity window.
type Cache interface {
	// Get returns the rate if it is still within the TTL.
	Get() (Rate, bool)
	// Set stores a value fetched at the given time.
	Set(value float64, at time.Time)
	// LastKnown returns the last stored rate regardless of age.
	LastKnown() (Rate, bool)
	// Reset forgets everything.
	Reset()
}

// MemoryCache is a process-wide Cache guarded by a mutex.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	rate Rate
	has  bool
}

// NewMemoryCache creates a cache. ttl <= 0 uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source (tests)
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get() (Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.has || c.now().Sub(c.rate.FetchedAt) >= c.ttl {
		return Rate{}, false
	}
	return c.rate, true
}

// Set ignores values that cannot be used for conversion.
func (c *MemoryCache) Set(value float64, at time.Time) {
	if !ValidRate(value) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = Rate{Value: value, FetchedAt: at}
	c.has = true
}

func (c *MemoryCache) LastKnown() (Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate, c.has
}

func (c *MemoryCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = Rate{}
	c.has = false
}

// TTL returns the validity window
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}
