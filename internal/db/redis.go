package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// forecastKey builds the cache key for a forecast result. Results are keyed
// by product, channel and horizon so a longer horizon never serves a shorter
// cached one.
func forecastKey(productID, channelID string, horizonDays int, algorithm models.Algorithm) string {
	return fmt.Sprintf("forecast:%s:%s:%d:%s", productID, channelID, horizonDays, algorithm)
}

// GetForecast returns the cached forecast for the given parameters, or
// (nil, nil) on a cache miss.
func (r *RedisStore) GetForecast(ctx context.Context, productID, channelID string, horizonDays int, algorithm models.Algorithm) (*models.ForecastResult, error) {
	raw, err := r.Client.Get(ctx, forecastKey(productID, channelID, horizonDays, algorithm)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get forecast: %w", err)
	}
	var result models.ForecastResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached forecast: %w", err)
	}
	return &result, nil
}

// SetForecast caches a forecast result with the given TTL.
func (r *RedisStore) SetForecast(ctx context.Context, result *models.ForecastResult, horizonDays int, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	key := forecastKey(result.ProductID, result.ChannelID, horizonDays, result.Algorithm)
	if err := r.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set forecast: %w", err)
	}
	return nil
}

// InvalidateForecasts deletes all cached forecasts for a product. Called
// when new sales data for the product is ingested.
func (r *RedisStore) InvalidateForecasts(ctx context.Context, productID string) error {
	pattern := fmt.Sprintf("forecast:%s:*", productID)
	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan forecast keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete forecast keys: %w", err)
	}
	return nil
}

// SetPlan caches a multi-location plan for later retrieval by plan ID.
func (r *RedisStore) SetPlan(ctx context.Context, plan *models.MultiLocationPlan, ttl time.Duration) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	key := "plan:" + plan.PlanID
	if err := r.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

// GetPlan returns a previously stored plan, or (nil, nil) when absent.
func (r *RedisStore) GetPlan(ctx context.Context, planID string) (*models.MultiLocationPlan, error) {
	raw, err := r.Client.Get(ctx, "plan:"+planID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	var plan models.MultiLocationPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decode cached plan: %w", err)
	}
	return &plan, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
