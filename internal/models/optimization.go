package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ServiceLevel is a target in-cycle fill probability. Only the three standard
// tiers are supported; each maps to a fixed normal z-score.
type ServiceLevel float64

const (
	ServiceLevelStandard ServiceLevel = 0.95
	ServiceLevelHigh     ServiceLevel = 0.98
	ServiceLevelCritical ServiceLevel = 0.995
)

// Valid reports whether s is one of the supported tiers.
func (s ServiceLevel) Valid() bool {
	return s == ServiceLevelStandard || s == ServiceLevelHigh || s == ServiceLevelCritical
}

// ZScore returns the normal quantile used in the safety stock formula.
func (s ServiceLevel) ZScore() float64 {
	switch s {
	case ServiceLevelHigh:
		return 2.05
	case ServiceLevelCritical:
		return 2.58
	default:
		return 1.65
	}
}

// Objective selects what the optimizer trades off.
type Objective string

const (
	ObjectiveMinimizeCost    Objective = "minimize_cost"
	ObjectiveMaximizeService Objective = "maximize_service"
	ObjectiveBalanced        Objective = "balanced"
)

// Valid reports whether o is a recognized objective.
func (o Objective) Valid() bool {
	return o == ObjectiveMinimizeCost || o == ObjectiveMaximizeService || o == ObjectiveBalanced
}

// OptimizationParameters are the per-run cost and lead-time inputs.
// Currency-valued fields use decimals at the API boundary; the numeric core
// converts to float64.
type OptimizationParameters struct {
	ServiceLevel        ServiceLevel     `json:"service_level"`
	LeadTimeDays        float64          `json:"lead_time_days"`
	LeadTimeStdDev      float64          `json:"lead_time_std_dev"`
	HoldingCostRate     float64          `json:"holding_cost_rate"` // annual, fraction of unit cost
	OrderingCost        decimal.Decimal  `json:"ordering_cost"`
	StorageCapacity     *float64         `json:"storage_capacity_units,omitempty"`
	WorkingCapitalLimit *decimal.Decimal `json:"working_capital_limit,omitempty"`
}

// Validate fails fast on caller contract violations.
func (p OptimizationParameters) Validate() error {
	if !p.ServiceLevel.Valid() {
		return fmt.Errorf("%w: service level %v not in {0.95, 0.98, 0.995}", ErrInvalidParameter, float64(p.ServiceLevel))
	}
	if p.LeadTimeDays <= 0 {
		return fmt.Errorf("%w: lead time must be positive", ErrInvalidParameter)
	}
	if p.LeadTimeStdDev < 0 {
		return fmt.Errorf("%w: lead time std dev must be non-negative", ErrInvalidParameter)
	}
	if p.HoldingCostRate <= 0 {
		return fmt.Errorf("%w: holding cost rate must be positive", ErrInvalidParameter)
	}
	if p.OrderingCost.Sign() <= 0 {
		return fmt.Errorf("%w: ordering cost must be positive", ErrInvalidParameter)
	}
	if p.StorageCapacity != nil && *p.StorageCapacity <= 0 {
		return fmt.Errorf("%w: storage capacity must be positive", ErrInvalidParameter)
	}
	if p.WorkingCapitalLimit != nil && p.WorkingCapitalLimit.Sign() <= 0 {
		return fmt.Errorf("%w: working capital limit must be positive", ErrInvalidParameter)
	}
	return nil
}

// CostBreakdown splits the annual inventory cost of a recommendation.
type CostBreakdown struct {
	Holding  float64 `json:"holding"`
	Ordering float64 `json:"ordering"`
	Storage  float64 `json:"storage"`
}

// RiskMetrics summarize the residual risk of a recommendation.
type RiskMetrics struct {
	StockoutRisk      float64 `json:"stockout_risk"`
	ObsolescenceRisk  float64 `json:"obsolescence_risk"`
	DemandVariability float64 `json:"demand_variability"` // coefficient of variation
}

// OptimizationResult is the replenishment recommendation for one
// (product, location) pair. A new optimization run always produces new
// results; instances are never mutated after construction.
type OptimizationResult struct {
	ProductID            string        `json:"product_id"`
	LocationID           string        `json:"location_id,omitempty"`
	Valid                bool          `json:"valid"` // false for degenerate inputs
	CurrentStock         float64       `json:"current_stock"`
	OptimalStockLevel    float64       `json:"optimal_stock_level"`
	ReorderPoint         float64       `json:"reorder_point"`
	ReorderQuantity      float64       `json:"reorder_quantity"` // EOQ
	SafetyStock          float64       `json:"safety_stock"`
	AchievedServiceLevel float64       `json:"achieved_service_level"`
	TotalAnnualCost      float64       `json:"total_annual_cost"`
	CostBreakdown        CostBreakdown `json:"cost_breakdown"`
	RiskMetrics          RiskMetrics   `json:"risk_metrics"`
	Recommendations      []string      `json:"recommendations,omitempty"`
	ConfidenceScore      float64       `json:"confidence_score"`
}

// ABCTier is an inventory priority class by cumulative value contribution.
type ABCTier string

const (
	TierA ABCTier = "A" // cumulative value share <= 80%
	TierB ABCTier = "B" // 80-95%
	TierC ABCTier = "C" // > 95%
)

// ABCItem is one product's ABC classification.
type ABCItem struct {
	ProductID          string       `json:"product_id"`
	AnnualValue        float64      `json:"annual_value"`
	ValueShare         float64      `json:"value_share"`
	CumulativeShare    float64      `json:"cumulative_share"`
	Tier               ABCTier      `json:"tier"`
	ReviewFrequency    string       `json:"review_frequency"`
	TargetServiceLevel ServiceLevel `json:"target_service_level"`
}

// SlowMover flags a product with poor turnover or aging stock.
type SlowMover struct {
	ProductID        string  `json:"product_id"`
	TurnoverRate     float64 `json:"turnover_rate"` // times per year
	AverageAgeDays   float64 `json:"average_age_days"`
	ObsolescenceRisk float64 `json:"obsolescence_risk"` // age/365, capped at 1
	CarryingCost     float64 `json:"carrying_cost"`
	StockValue       float64 `json:"stock_value"`
	Recommendation   string  `json:"recommendation"`
}
