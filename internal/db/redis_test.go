package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/models"
)

// setupTestRedis spins up an in-memory Redis and returns a store backed by it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	store := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	return s, store
}

func TestForecastCacheRoundTrip(t *testing.T) {
	s, store := setupTestRedis(t)
	defer s.Close()

	ctx := context.Background()
	result := &models.ForecastResult{
		Status:    models.ForecastOK,
		ProductID: "p1",
		ChannelID: "web",
		Algorithm: models.AlgorithmMovingAverage,
		Forecast:  []float64{10, 11, 12},
		Lower:     []float64{8, 9, 10},
		Upper:     []float64{12, 13, 14},
	}

	require.NoError(t, store.SetForecast(ctx, result, 3, time.Hour))

	got, err := store.GetForecast(ctx, "p1", "web", 3, models.AlgorithmMovingAverage)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.Forecast, got.Forecast)
	assert.Equal(t, result.Algorithm, got.Algorithm)
}

func TestForecastCacheMiss(t *testing.T) {
	s, store := setupTestRedis(t)
	defer s.Close()

	got, err := store.GetForecast(context.Background(), "missing", "web", 7, models.AlgorithmAuto)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestForecastCacheKeyedByHorizon(t *testing.T) {
	s, store := setupTestRedis(t)
	defer s.Close()

	ctx := context.Background()
	result := &models.ForecastResult{
		Status:    models.ForecastOK,
		ProductID: "p1",
		ChannelID: "web",
		Algorithm: models.AlgorithmARIMA,
		Forecast:  []float64{5, 5, 5},
	}
	require.NoError(t, store.SetForecast(ctx, result, 3, time.Hour))

	// Different horizon must not hit the cached entry.
	got, err := store.GetForecast(ctx, "p1", "web", 7, models.AlgorithmARIMA)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateForecasts(t *testing.T) {
	s, store := setupTestRedis(t)
	defer s.Close()

	ctx := context.Background()
	for _, pid := range []string{"p1", "p2"} {
		result := &models.ForecastResult{
			Status:    models.ForecastOK,
			ProductID: pid,
			ChannelID: "web",
			Algorithm: models.AlgorithmMovingAverage,
			Forecast:  []float64{1},
		}
		require.NoError(t, store.SetForecast(ctx, result, 7, time.Hour))
	}

	require.NoError(t, store.InvalidateForecasts(ctx, "p1"))

	got, err := store.GetForecast(ctx, "p1", "web", 7, models.AlgorithmMovingAverage)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Other products stay cached.
	got, err = store.GetForecast(ctx, "p2", "web", 7, models.AlgorithmMovingAverage)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestPlanRoundTrip(t *testing.T) {
	s, store := setupTestRedis(t)
	defer s.Close()

	ctx := context.Background()
	plan := &models.MultiLocationPlan{
		PlanID: "plan-123",
		Status: models.PlanOptimal,
		Method: models.MethodExact,
		Allocations: map[string]models.Allocation{
			models.PlanKey("p1", "loc1"): {Stock: 100, Order: 40, ReorderPoint: 30},
		},
	}
	require.NoError(t, store.SetPlan(ctx, plan, time.Hour))

	got, err := store.GetPlan(ctx, "plan-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.PlanOptimal, got.Status)
	assert.Equal(t, plan.Allocations, got.Allocations)

	got, err = store.GetPlan(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}
