package ratelimit

import (
	"fmt"
	"sync"

	"github.com/demandcast/demandcast/internal/observability"
)

// ClientLimiter rate limits callers of the solve and backtest endpoints.
//
// Each client gets its own token bucket, created lazily on first access.
// Clients are identified by API key when present, falling back to the
// remote address. Activity is reported through the injected metrics
// registry.
type ClientLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	config  Config
	metrics observability.MetricsRegistry
}

// Config holds the rate limiting configuration.
type Config struct {
	Capacity   int  // burst allowance
	RefillRate int  // tokens per second, the sustained rate
	Enabled    bool // whether limiting is active
}

func NewClientLimiter(config Config, metrics observability.MetricsRegistry) *ClientLimiter {
	return &ClientLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

// Allow reports whether a request from clientID should proceed. Always true
// when limiting is disabled.
func (cl *ClientLimiter) Allow(clientID string) bool {
	if !cl.config.Enabled {
		return true
	}

	cl.metrics.IncrementRateLimitRequests(clientID)

	cl.mu.RLock()
	bucket, exists := cl.buckets[clientID]
	cl.mu.RUnlock()

	if !exists {
		cl.mu.Lock()
		bucket, exists = cl.buckets[clientID]
		if !exists {
			bucket = NewTokenBucket(cl.config.Capacity, cl.config.RefillRate)
			cl.buckets[clientID] = bucket
		}
		cl.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		cl.metrics.IncrementRateLimitHits(clientID)
	}
	return allowed
}

// Stats is a point-in-time snapshot of per-client limiting activity.
type Stats struct {
	ClientID string  `json:"client_id"`
	Hits     int64   `json:"hits"`
	Total    int64   `json:"total"`
	HitRate  float64 `json:"hit_rate"` // fraction of requests limited
}

func (s Stats) String() string {
	return fmt.Sprintf("client %s: %d/%d hits (%.2f%%)", s.ClientID, s.Hits, s.Total, s.HitRate*100)
}

// GetStats returns limiting statistics for every client seen so far.
func (cl *ClientLimiter) GetStats() map[string]Stats {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	stats := make(map[string]Stats, len(cl.buckets))
	for clientID, bucket := range cl.buckets {
		hits, total := bucket.Stats()
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(hits) / float64(total)
		}
		stats[clientID] = Stats{ClientID: clientID, Hits: hits, Total: total, HitRate: hitRate}
	}
	return stats
}
