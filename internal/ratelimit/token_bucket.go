// Package ratelimit implements token bucket rate limiting for the
// CPU-heavy solve and backtest endpoints.
//
// The token bucket algorithm allows bursts up to the bucket capacity while
// holding a sustained rate over time. Solver calls are expensive enough that
// a single client retrying in a loop can starve everyone else; per-client
// buckets keep one bad integration from doing that.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket. The bucket has a fixed
// capacity, refills at a constant rate and starts full; each request
// consumes one token.
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int // tokens added per second
	lastRefill time.Time
	mu         sync.Mutex
	hitCount   int64
	totalCount int64
}

func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow attempts to consume one token, refilling for elapsed time first.
// Returns false when the bucket is empty and the request should be limited.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.totalCount++

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	tb.hitCount++
	return false
}

// Stats returns how many requests were limited and how many were processed.
func (tb *TokenBucket) Stats() (hits, total int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.hitCount, tb.totalCount
}
