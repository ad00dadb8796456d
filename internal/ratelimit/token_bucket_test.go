package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/demandcast/demandcast/internal/observability"
)

func TestTokenBucketBurstThenLimit(t *testing.T) {
	bucket := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		assert.True(t, bucket.Allow(), "burst request %d should pass", i)
	}
	assert.False(t, bucket.Allow(), "bucket should be empty after the burst")

	hits, total := bucket.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(4), total)
}

func TestClientLimiterIsolatesClients(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 1, RefillRate: 1, Enabled: true}, observability.NewNoOpRegistry())

	assert.True(t, limiter.Allow("alpha"))
	assert.False(t, limiter.Allow("alpha"), "alpha exhausted its bucket")
	assert.True(t, limiter.Allow("beta"), "beta has its own bucket")

	stats := limiter.GetStats()
	assert.Equal(t, int64(1), stats["alpha"].Hits)
	assert.Equal(t, int64(0), stats["beta"].Hits)
}

func TestClientLimiterDisabled(t *testing.T) {
	limiter := NewClientLimiter(Config{Enabled: false}, observability.NewNoOpRegistry())
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("anyone"))
	}
	assert.Empty(t, limiter.GetStats())
}
