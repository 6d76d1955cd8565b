package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// KeyedLimiter applies per-client limits plus a global cap shared by every
// client. A request counts against both only when both allow it.
type KeyedLimiter struct {
	perClient []Limit
	global    []Limit
	enabled   bool
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*window
	all     window
}

// NewKeyedLimiter limits each client to the given rates. globalPerHour caps
// all clients together. Zero disables a limit.
func NewKeyedLimiter(perMinute, perHour, perDay, globalPerHour int, enabled bool) *KeyedLimiter {
	return &KeyedLimiter{
		perClient: limits(perMinute, perHour, perDay),
		global:    limits(0, globalPerHour, 0),
		enabled:   enabled,
		now:       time.Now,
		clients:   make(map[string]*window),
	}
}

// Allow records a request from key if the client and global limits permit it.
func (k *KeyedLimiter) Allow(key string) bool {
	if !k.enabled {
		return true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	w, ok := k.clients[key]
	if !ok {
		w = &window{}
		k.clients[key] = w
	}
	w.expire(now)
	k.all.expire(now)

	if !w.allows(now, k.perClient) || !k.all.allows(now, k.global) {
		return false
	}
	w.hits = append(w.hits, now)
	k.all.hits = append(k.all.hits, now)
	return true
}

// Prune drops clients with no requests in the last day.
func (k *KeyedLimiter) Prune() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	n := 0
	for key, w := range k.clients {
		w.expire(now)
		if len(w.hits) == 0 {
			delete(k.clients, key)
			n++
		}
	}
	return n
}

// KeyedStats summarizes a KeyedLimiter
type KeyedStats struct {
	Enabled bool  `json:"enabled"`
	Clients int   `json:"clients"`
	Global  Stats `json:"global"`
}

func (k *KeyedLimiter) GetStats() KeyedStats {
	if !k.enabled {
		return KeyedStats{}
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.all.expire(now)
	return KeyedStats{Enabled: true, Clients: len(k.clients), Global: k.all.stats(now, k.global)}
}

// ClientStats returns the counters of one client
func (k *KeyedLimiter) ClientStats(key string) Stats {
	if !k.enabled {
		return Stats{}
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	w, ok := k.clients[key]
	if !ok {
		w = &window{}
	}
	return w.stats(now, k.perClient)
}

// Middleware rejects requests over the limit with 429. Clients are keyed by
// IP address.
func (k *KeyedLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !k.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Demasiadas solicitudes, intenta nuevamente más tarde",
				"stats":   k.ClientStats(key),
			})
			return
		}
		c.Next()
	}
}
