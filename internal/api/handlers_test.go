package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/db"
	"github.com/demandcast/demandcast/internal/history"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
	"github.com/demandcast/demandcast/internal/ratelimit"
)

func testConfig() config.Config {
	return config.Config{
		ForecastCacheTTL:       time.Hour,
		ForecastTimeout:        10 * time.Second,
		MaxHorizonDays:         365,
		DefaultMarketCode:      "US",
		SolverTimeout:          10 * time.Second,
		StochasticIterations:   50,
		BalancedServiceWeight:  0.5,
		DefaultHoldingCostRate: 0.25,
	}
}

func testDatabase() *db.DB {
	database := &db.DB{
		Products: []models.Product{
			{ID: "sku-1", SKU: "SKU-1", Name: "Widget", UnitCost: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(25), LeadTimeDays: 7, Active: true},
		},
		Locations: map[string]models.Location{
			"east": {ID: "east", Name: "East DC", MarketCode: "US", StorageCapacity: 10000, Active: true},
			"west": {ID: "west", Name: "West DC", MarketCode: "US", StorageCapacity: 10000, Active: true},
		},
		Inventory: map[string]models.InventoryLevel{
			models.PlanKey("sku-1", "east"): {ProductID: "sku-1", LocationID: "east", OnHand: 120, AverageAgeDays: 20},
			models.PlanKey("sku-1", "west"): {ProductID: "sku-1", LocationID: "west", OnHand: 80, AverageAgeDays: 150},
		},
	}
	database.BuildIndexes()
	return database
}

func seedHistory(t *testing.T, hist *history.MockHistory, productID, channelID string, days int) {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -days)
	series := make(models.TimeSeries, days)
	for i := range series {
		demand := 20 + float64(i%7)*2
		series[i] = models.DataPoint{
			Date:      start.AddDate(0, 0, i),
			Demand:    demand,
			Revenue:   demand * 25,
			UnitPrice: 25,
		}
	}
	hist.Seed(productID, channelID, series)
}

func setupTestServer(t *testing.T, limiterCfg ratelimit.Config) (*Server, *history.MockHistory) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.InitRedis(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	hist := history.NewMockHistory()
	metrics := observability.NewNoOpRegistry()
	limiter := ratelimit.NewClientLimiter(limiterCfg, metrics)
	srv := NewServer(zap.NewNop(), store, testDatabase(), nil, hist, limiter, metrics, testConfig())
	return srv, hist
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestForecastEndpoint(t *testing.T) {
	srv, hist := setupTestServer(t, ratelimit.Config{})
	seedHistory(t, hist, "sku-1", "retail", 120)

	rec := doJSON(t, srv, http.MethodPost, "/forecast", models.ForecastRequest{
		ProductID:   "sku-1",
		ChannelID:   "retail",
		HorizonDays: 14,
		Algorithm:   models.AlgorithmMovingAverage,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ForecastResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.ForecastOK, result.Status)
	require.Len(t, result.Forecast, 14)
	for i := range result.Forecast {
		assert.GreaterOrEqual(t, result.Lower[i], 0.0)
		assert.LessOrEqual(t, result.Lower[i], result.Forecast[i])
		assert.LessOrEqual(t, result.Forecast[i], result.Upper[i])
	}
}

func TestForecastSecondCallServedFromCache(t *testing.T) {
	srv, hist := setupTestServer(t, ratelimit.Config{})
	seedHistory(t, hist, "sku-1", "retail", 120)

	req := models.ForecastRequest{
		ProductID:   "sku-1",
		ChannelID:   "retail",
		HorizonDays: 7,
		Algorithm:   models.AlgorithmMovingAverage,
	}
	first := doJSON(t, srv, http.MethodPost, "/forecast", req)
	require.Equal(t, http.StatusOK, first.Code)
	second := doJSON(t, srv, http.MethodPost, "/forecast", req)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b models.ForecastResult
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.GeneratedAt, b.GeneratedAt, "cached result should be byte-identical")
}

func TestForecastRejectsBadRequests(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{})

	rec := doJSON(t, srv, http.MethodPost, "/forecast", models.ForecastRequest{ChannelID: "retail", HorizonDays: 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/forecast", models.ForecastRequest{ProductID: "sku-1", ChannelID: "retail", HorizonDays: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/forecast", models.ForecastRequest{ProductID: "sku-1", ChannelID: "retail", HorizonDays: 9999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeasonalEndpointNeutralOnThinHistory(t *testing.T) {
	srv, hist := setupTestServer(t, ratelimit.Config{})
	seedHistory(t, hist, "sku-1", "retail", 20)

	rec := doJSON(t, srv, http.MethodPost, "/seasonal/detect", seasonalRequest{ProductID: "sku-1", ChannelID: "retail"})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.SeasonalProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.InDelta(t, 0.1, profile.OverallStrength, 1e-9)
}

func TestBacktestEndpoint(t *testing.T) {
	srv, hist := setupTestServer(t, ratelimit.Config{})
	seedHistory(t, hist, "sku-1", "retail", 150)

	rec := doJSON(t, srv, http.MethodPost, "/validate/backtest", backtestRequest{
		ProductID:       "sku-1",
		ChannelID:       "retail",
		ModelType:       models.AlgorithmMovingAverage,
		ForecastHorizon: 7,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Greater(t, result.TotalPredictions, 0)
}

func TestOptimizeEndpointCoversStockedLocations(t *testing.T) {
	srv, hist := setupTestServer(t, ratelimit.Config{})
	seedHistory(t, hist, "sku-1", "retail", 120)

	rec := doJSON(t, srv, http.MethodPost, "/optimize", optimizeRequest{
		ProductID: "sku-1",
		ChannelID: "retail",
		Parameters: models.OptimizationParameters{
			ServiceLevel:    models.ServiceLevelStandard,
			LeadTimeDays:    7,
			LeadTimeStdDev:  1,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var results []models.OptimizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Valid)
		assert.Greater(t, res.ReorderQuantity, 0.0)
	}
}

func TestOptimizeUnknownProduct(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{})
	rec := doJSON(t, srv, http.MethodPost, "/optimize", optimizeRequest{
		ProductID: "nope",
		ChannelID: "retail",
		Parameters: models.OptimizationParameters{
			ServiceLevel:    models.ServiceLevelStandard,
			LeadTimeDays:    7,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSolveAndFetchPlan(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{})

	rec := doJSON(t, srv, http.MethodPost, "/optimize/multi-location", models.MultiLocationRequest{
		Products: []models.ProductSpec{
			{ProductID: "sku-1", UnitCost: 10, DailyDemand: 20, DemandStdDev: 4, LeadTimeDays: 7, UnitVolume: 1},
		},
		Locations: []models.LocationSpec{
			{LocationID: "east", StorageCapacity: 10000},
			{LocationID: "west", StorageCapacity: 10000},
		},
		Constraints: models.MultiLocationConstraints{
			MinServiceLevel: models.ServiceLevelStandard,
			HoldingCostRate: 0.25,
			OrderingCost:    50,
		},
		Objective: models.ObjectiveMinimizeCost,
		Method:    models.MethodHeuristic,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan models.MultiLocationPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.NotEmpty(t, plan.PlanID)
	assert.Len(t, plan.Allocations, 2)

	fetched := doJSON(t, srv, http.MethodGet, "/plans/"+plan.PlanID, nil)
	require.Equal(t, http.StatusOK, fetched.Code)
	var again models.MultiLocationPlan
	require.NoError(t, json.Unmarshal(fetched.Body.Bytes(), &again))
	assert.Equal(t, plan.PlanID, again.PlanID)
}

func TestGetPlanNotFound(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{})
	rec := doJSON(t, srv, http.MethodGet, "/plans/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSolveRateLimited(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{Capacity: 1, RefillRate: 1, Enabled: true})

	req := models.MultiLocationRequest{
		Products:  []models.ProductSpec{{ProductID: "sku-1", UnitCost: 10, DailyDemand: 20, LeadTimeDays: 7, UnitVolume: 1}},
		Locations: []models.LocationSpec{{LocationID: "east", StorageCapacity: 10000}},
		Constraints: models.MultiLocationConstraints{
			MinServiceLevel: models.ServiceLevelStandard,
			HoldingCostRate: 0.25,
			OrderingCost:    50,
		},
		Method: models.MethodHeuristic,
	}
	first := doJSON(t, srv, http.MethodPost, "/optimize/multi-location", req)
	require.Equal(t, http.StatusOK, first.Code)
	second := doJSON(t, srv, http.MethodPost, "/optimize/multi-location", req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := setupTestServer(t, ratelimit.Config{})
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
