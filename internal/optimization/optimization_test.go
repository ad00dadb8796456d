package optimization

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/forecasting"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

func TestEOQTextbookScenario(t *testing.T) {
	// D=1000/yr, S=50/order, h=25% of a 10.00 unit: sqrt(2*1000*50/2.5) = 200.
	eoq, ok := EOQ(1000, 50, 10, 0.25)
	require.True(t, ok)
	assert.InDelta(t, 200.0, eoq, 1e-9)
}

func TestEOQDegenerateInputs(t *testing.T) {
	cases := []struct {
		name                             string
		demand, ordering, unitCost, rate float64
	}{
		{"zero demand", 0, 50, 10, 0.25},
		{"negative demand", -10, 50, 10, 0.25},
		{"zero ordering cost", 1000, 0, 10, 0.25},
		{"zero unit cost", 1000, 50, 0, 0.25},
		{"zero holding rate", 1000, 50, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eoq, ok := EOQ(tc.demand, tc.ordering, tc.unitCost, tc.rate)
			assert.False(t, ok)
			assert.Zero(t, eoq)
		})
	}
}

func TestEOQMonotonicity(t *testing.T) {
	base, ok := EOQ(1000, 50, 10, 0.25)
	require.True(t, ok)

	moreDemand, _ := EOQ(2000, 50, 10, 0.25)
	assert.Greater(t, moreDemand, base, "EOQ should grow with demand")

	pricierHolding, _ := EOQ(1000, 50, 10, 0.50)
	assert.Less(t, pricierHolding, base, "EOQ should shrink with holding cost")
}

func TestEOQStorageAndCapitalClips(t *testing.T) {
	eoq := 200.0
	capacity := 100.0
	clipped := ClipEOQ(eoq, 10, &capacity, nil)
	assert.InDelta(t, 80.0, clipped, 1e-9, "storage clip leaves 20%% headroom")

	capital := 500.0
	clipped = ClipEOQ(eoq, 10, nil, &capital)
	assert.InDelta(t, 50.0, clipped, 1e-9, "capital clip is limit/unit cost")

	clipped = ClipEOQ(eoq, 10, &capacity, &capital)
	assert.InDelta(t, 50.0, clipped, 1e-9, "tighter constraint wins")
}

func TestReorderPointScenario(t *testing.T) {
	// 10/day over a 7 day lead time plus 20 units of buffer.
	assert.InDelta(t, 90.0, ReorderPoint(10, 7, 20), 1e-9)
}

func TestSafetyStockMonotonicity(t *testing.T) {
	std := SafetyStock(models.ServiceLevelStandard, 10, 4, 7, 1)
	high := SafetyStock(models.ServiceLevelHigh, 10, 4, 7, 1)
	crit := SafetyStock(models.ServiceLevelCritical, 10, 4, 7, 1)
	assert.Less(t, std, high)
	assert.Less(t, high, crit)
}

func TestSafetyStockFloor(t *testing.T) {
	// Zero variability still holds one day of demand.
	ss := SafetyStock(models.ServiceLevelStandard, 10, 0, 7, 0)
	assert.InDelta(t, 10.0, ss, 1e-9)
}

func TestClassifyABCCutoffs(t *testing.T) {
	values := map[string]float64{
		"p1": 50000,
		"p2": 30000,
		"p3": 15000,
		"p4": 3000,
		"p5": 1000,
	}
	items := ClassifyABC(values)
	require.Len(t, items, 5)

	tiers := map[string]models.ABCTier{}
	for _, it := range items {
		tiers[it.ProductID] = it.Tier
	}
	assert.Equal(t, models.TierA, tiers["p1"])
	assert.Equal(t, models.TierB, tiers["p2"])
	assert.Equal(t, models.TierC, tiers["p3"])
	assert.Equal(t, models.TierC, tiers["p4"])
	assert.Equal(t, models.TierC, tiers["p5"])

	assert.Equal(t, "weekly", items[0].ReviewFrequency)
	assert.Equal(t, models.ServiceLevelHigh, items[0].TargetServiceLevel)
	assert.InDelta(t, 1.0, items[len(items)-1].CumulativeShare, 1e-9)
}

func TestClassifyABCPartitionsEveryProduct(t *testing.T) {
	values := map[string]float64{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		values[id] = float64(len(id)) * 100 // identical values, tie-broken by ID
	}
	values["big"] = 100000
	items := ClassifyABC(values)
	require.Len(t, items, len(values))
	seen := map[string]bool{}
	for _, it := range items {
		assert.Contains(t, []models.ABCTier{models.TierA, models.TierB, models.TierC}, it.Tier)
		assert.False(t, seen[it.ProductID], "each product classified exactly once")
		seen[it.ProductID] = true
	}
}

func TestClassifyABCZeroValueGoesToC(t *testing.T) {
	items := ClassifyABC(map[string]float64{"dead": 0, "live": 1000})
	require.Len(t, items, 2)
	for _, it := range items {
		if it.ProductID == "dead" {
			assert.Equal(t, models.TierC, it.Tier)
		}
	}
}

func TestIdentifySlowMovers(t *testing.T) {
	inputs := []SlowMoverInput{
		{ProductID: "fast", AnnualDemand: 1200, AverageStock: 100, AverageAgeDays: 30, UnitCost: 5, HoldingCostRate: 0.25},
		{ProductID: "slow", AnnualDemand: 50, AverageStock: 100, AverageAgeDays: 200, UnitCost: 5, HoldingCostRate: 0.25},
		{ProductID: "aging", AnnualDemand: 400, AverageStock: 100, AverageAgeDays: 120, UnitCost: 5, HoldingCostRate: 0.25},
		{ProductID: "empty", AnnualDemand: 0, AverageStock: 0, AverageAgeDays: 0},
	}
	movers := IdentifySlowMovers(inputs)
	require.Len(t, movers, 2)

	byID := map[string]models.SlowMover{}
	for _, m := range movers {
		byID[m.ProductID] = m
	}
	slow, ok := byID["slow"]
	require.True(t, ok)
	assert.InDelta(t, 0.5, slow.TurnoverRate, 1e-9)
	assert.InDelta(t, 200.0/365, slow.ObsolescenceRisk, 1e-9)
	assert.InDelta(t, 0.25*500, slow.CarryingCost, 1e-9)
	assert.Contains(t, slow.Recommendation, "liquidate")

	aging, ok := byID["aging"]
	require.True(t, ok)
	assert.Equal(t, 4.0, aging.TurnoverRate)
	assert.NotEmpty(t, aging.Recommendation)
}

func steadySeries(n int, level float64) models.TimeSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make(models.TimeSeries, n)
	for i := range ts {
		demand := level + float64(i%5) // mild noise so variance is nonzero
		ts[i] = models.DataPoint{
			Date:      start.AddDate(0, 0, i),
			Demand:    demand,
			Revenue:   demand * 10,
			UnitPrice: 10,
		}
	}
	return ts
}

func newTestOptimizer() *Optimizer {
	engine := forecasting.NewEngine(nil, &observability.NoOpRegistry{}, zap.NewNop())
	return NewOptimizer(engine, &observability.NoOpRegistry{}, zap.NewNop())
}

func TestOptimizeProducesConsistentPolicy(t *testing.T) {
	opt := newTestOptimizer()
	res, err := opt.Optimize(context.Background(), OptimizeInput{
		ProductID:    "prod-1",
		LocationID:   "loc-1",
		Series:       steadySeries(120, 20),
		CurrentStock: 50,
		UnitCost:     10,
		Params: models.OptimizationParameters{
			ServiceLevel:    models.ServiceLevelStandard,
			LeadTimeDays:    7,
			LeadTimeStdDev:  1,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	require.NoError(t, err)
	require.True(t, res.Valid)

	assert.Greater(t, res.ReorderQuantity, 0.0)
	assert.Greater(t, res.SafetyStock, 0.0)
	assert.Greater(t, res.ReorderPoint, res.SafetyStock, "reorder point includes lead-time demand")
	assert.InDelta(t, res.ReorderPoint+res.ReorderQuantity, res.OptimalStockLevel, 1e-9)
	assert.InDelta(t, res.TotalAnnualCost,
		res.CostBreakdown.Holding+res.CostBreakdown.Ordering+res.CostBreakdown.Storage, 1e-9)
	assert.InDelta(t, 0.95, res.AchievedServiceLevel, 1e-9)
	assert.GreaterOrEqual(t, res.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, res.ConfidenceScore, 1.0)
}

func TestOptimizeFlagsStockBelowReorderPoint(t *testing.T) {
	opt := newTestOptimizer()
	res, err := opt.Optimize(context.Background(), OptimizeInput{
		ProductID:    "prod-1",
		Series:       steadySeries(120, 20),
		CurrentStock: 0,
		UnitCost:     10,
		Params: models.OptimizationParameters{
			ServiceLevel:    models.ServiceLevelStandard,
			LeadTimeDays:    7,
			LeadTimeStdDev:  1,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.NotEmpty(t, res.Recommendations)
	assert.Contains(t, res.Recommendations[0], "order")
}

func TestOptimizeZeroDemandIsInvalidNotError(t *testing.T) {
	opt := newTestOptimizer()
	res, err := opt.Optimize(context.Background(), OptimizeInput{
		ProductID:    "ghost",
		Series:       steadySeries(60, 0)[:0], // empty history
		CurrentStock: 10,
		UnitCost:     10,
		Params: models.OptimizationParameters{
			ServiceLevel:    models.ServiceLevelStandard,
			LeadTimeDays:    7,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Recommendations)
}

func TestOptimizeRejectsBadParameters(t *testing.T) {
	opt := newTestOptimizer()
	_, err := opt.Optimize(context.Background(), OptimizeInput{
		ProductID: "prod-1",
		Series:    steadySeries(120, 20),
		UnitCost:  10,
		Params: models.OptimizationParameters{
			ServiceLevel:    0.90, // not a supported tier
			LeadTimeDays:    7,
			HoldingCostRate: 0.25,
			OrderingCost:    decimal.NewFromInt(50),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}
