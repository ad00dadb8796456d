package optimization

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/forecasting"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

// forecastHorizonDays is how far ahead the optimizer projects demand when
// deriving the daily mean and spread.
const forecastHorizonDays = 30

// Optimizer turns a demand series into a replenishment recommendation for a
// single product at a single location.
type Optimizer struct {
	engine  *forecasting.Engine
	metrics observability.MetricsRegistry
	logger  *zap.Logger
}

func NewOptimizer(engine *forecasting.Engine, metrics observability.MetricsRegistry, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.L()
	}
	return &Optimizer{
		engine:  engine,
		metrics: metrics,
		logger:  logger.Named("optimizer"),
	}
}

// OptimizeInput bundles the per-product state the optimizer needs beyond the
// demand series.
type OptimizeInput struct {
	ProductID    string
	LocationID   string
	Series       models.TimeSeries
	CurrentStock float64
	UnitCost     float64
	Params       models.OptimizationParameters
}

// Optimize forecasts demand and derives EOQ, safety stock, reorder point,
// annual cost and risk metrics. Degenerate demand or cost inputs produce a
// result with Valid=false rather than an error; only contract violations in
// the parameters return an error.
func (o *Optimizer) Optimize(ctx context.Context, in OptimizeInput) (*models.OptimizationResult, error) {
	if err := in.Params.Validate(); err != nil {
		o.metrics.IncrementOptimizations("invalid")
		return nil, err
	}

	fc, err := o.engine.Forecast(ctx, in.Series, models.ForecastRequest{
		ProductID:     in.ProductID,
		HorizonDays:   forecastHorizonDays,
		Algorithm:     models.AlgorithmAuto,
		ApplySeasonal: true,
	})
	if err != nil {
		o.metrics.IncrementOptimizations("error")
		return nil, fmt.Errorf("forecasting demand for %s: %w", in.ProductID, err)
	}

	res := &models.OptimizationResult{
		ProductID:    in.ProductID,
		LocationID:   in.LocationID,
		CurrentStock: in.CurrentStock,
	}
	if fc.Status != models.ForecastOK {
		res.Recommendations = append(res.Recommendations, "demand could not be forecast; review sales history before ordering")
		o.metrics.IncrementOptimizations("invalid")
		return res, nil
	}

	dailyMean := mean(fc.Forecast)
	dailyStd := stdDev(fc.Forecast, dailyMean)
	annualDemand := dailyMean * 365
	orderingCost, _ := in.Params.OrderingCost.Float64()

	eoq, ok := EOQ(annualDemand, orderingCost, in.UnitCost, in.Params.HoldingCostRate)
	if !ok {
		res.Recommendations = append(res.Recommendations, "no positive demand or cost inputs; optimization skipped")
		o.metrics.IncrementOptimizations("invalid")
		return res, nil
	}

	var capitalLimit *float64
	if in.Params.WorkingCapitalLimit != nil {
		v, _ := in.Params.WorkingCapitalLimit.Float64()
		capitalLimit = &v
	}
	clipped := ClipEOQ(eoq, in.UnitCost, in.Params.StorageCapacity, capitalLimit)

	ss := SafetyStock(in.Params.ServiceLevel, dailyMean, dailyStd, in.Params.LeadTimeDays, in.Params.LeadTimeStdDev)
	rop := ReorderPoint(dailyMean, in.Params.LeadTimeDays, ss)

	res.Valid = true
	res.ReorderQuantity = clipped
	res.SafetyStock = ss
	res.ReorderPoint = rop
	res.OptimalStockLevel = rop + clipped
	res.AchievedServiceLevel = achievedServiceLevel(in.Params.ServiceLevel, eoq, clipped)
	res.CostBreakdown = annualCost(annualDemand, clipped, ss, in.UnitCost, orderingCost, in.Params.HoldingCostRate)
	res.TotalAnnualCost = res.CostBreakdown.Holding + res.CostBreakdown.Ordering + res.CostBreakdown.Storage
	res.RiskMetrics = models.RiskMetrics{
		StockoutRisk:      1 - res.AchievedServiceLevel,
		ObsolescenceRisk:  obsolescenceRisk(in.CurrentStock, dailyMean),
		DemandVariability: variability(dailyMean, dailyStd),
	}
	res.ConfidenceScore = confidenceScore(fc.Accuracy.MAPE, len(in.Series))
	res.Recommendations = recommendations(res, dailyMean)

	o.metrics.IncrementOptimizations("ok")
	o.logger.Debug("optimized product",
		zap.String("product_id", in.ProductID),
		zap.Float64("eoq", clipped),
		zap.Float64("reorder_point", rop),
		zap.Float64("safety_stock", ss),
	)
	return res, nil
}

// annualCost splits the yearly cost of the recommended policy. Average cycle
// inventory is Q/2 plus the safety buffer; storage is charged on the same
// average at a flat rate.
func annualCost(annualDemand, q, safety, unitCost, orderingCost, holdingRate float64) models.CostBreakdown {
	avgInventory := q/2 + safety
	holding := holdingRate * unitCost * avgInventory
	ordering := 0.0
	if q > 0 {
		ordering = orderingCost * annualDemand / q
	}
	const storageRate = 0.02 // annual cost of floor space per unit, fraction of unit cost
	storage := storageRate * unitCost * avgInventory
	return models.CostBreakdown{Holding: holding, Ordering: ordering, Storage: storage}
}

// achievedServiceLevel degrades the target when constraints force order
// quantities below the unconstrained EOQ, since smaller cycles mean more
// exposure to lead-time risk.
func achievedServiceLevel(target models.ServiceLevel, rawEOQ, clippedEOQ float64) float64 {
	level := float64(target)
	if rawEOQ <= 0 || clippedEOQ >= rawEOQ {
		return level
	}
	shortfall := 1 - clippedEOQ/rawEOQ
	level -= shortfall * 0.1
	if level < 0.5 {
		level = 0.5
	}
	return level
}

func obsolescenceRisk(currentStock, dailyMean float64) float64 {
	if dailyMean <= 0 {
		if currentStock > 0 {
			return 1
		}
		return 0
	}
	daysOfCover := currentStock / dailyMean
	risk := daysOfCover / 365
	if risk > 1 {
		risk = 1
	}
	return risk
}

func variability(mean, std float64) float64 {
	if mean <= 0 {
		return 0
	}
	return std / mean
}

// confidenceScore blends forecast accuracy and series depth into [0, 1].
func confidenceScore(mape float64, n int) float64 {
	acc := 1 - mape
	if acc < 0 {
		acc = 0
	}
	depth := float64(n) / 365
	if depth > 1 {
		depth = 1
	}
	return (acc + depth) / 2
}

func recommendations(res *models.OptimizationResult, dailyMean float64) []string {
	var out []string
	if res.CurrentStock <= res.ReorderPoint {
		out = append(out, fmt.Sprintf("stock at or below reorder point; order %.0f units now", math.Ceil(res.ReorderQuantity)))
	}
	if res.OptimalStockLevel > 0 && res.CurrentStock > res.OptimalStockLevel*1.5 {
		out = append(out, "stock exceeds 150% of the optimal level; pause replenishment")
	}
	if res.RiskMetrics.DemandVariability > 1 {
		out = append(out, "demand is highly variable; review safety stock monthly")
	}
	if dailyMean > 0 && res.CurrentStock/dailyMean > 180 {
		out = append(out, "more than six months of cover on hand; consider markdown")
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
