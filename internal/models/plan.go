package models

import (
	"fmt"
	"time"
)

// SolveMethod identifies which multi-location solver produced a plan.
type SolveMethod string

const (
	MethodExact      SolveMethod = "exact"
	MethodStochastic SolveMethod = "stochastic"
	MethodHeuristic  SolveMethod = "heuristic"
)

// PlanStatus describes the quality of a multi-location plan.
type PlanStatus string

const (
	PlanOptimal     PlanStatus = "optimal"
	PlanFeasible    PlanStatus = "feasible"
	PlanConstrained PlanStatus = "constrained" // feasible but with soft violations
	PlanInfeasible  PlanStatus = "infeasible"
	PlanError       PlanStatus = "error"
)

// ProductSpec is one product's inputs to the multi-location solve.
type ProductSpec struct {
	ProductID      string  `json:"product_id"`
	UnitCost       float64 `json:"unit_cost"`
	DailyDemand    float64 `json:"daily_demand"` // aggregate across locations
	DemandStdDev   float64 `json:"demand_std_dev"`
	LeadTimeDays   float64 `json:"lead_time_days"`
	UnitVolume     float64 `json:"unit_volume"` // storage units per item
	BatchSize      float64 `json:"batch_size,omitempty"`
	MinOrderQty    float64 `json:"min_order_qty,omitempty"`
	ShelfLifeDays  float64 `json:"shelf_life_days,omitempty"`
	PriorityWeight float64 `json:"priority_weight,omitempty"`
}

// LocationSpec is one location's capacity and demand split.
type LocationSpec struct {
	LocationID      string             `json:"location_id"`
	StorageCapacity float64            `json:"storage_capacity"`
	DemandShare     map[string]float64 `json:"demand_share"` // product_id -> fraction of product demand
	TransferCost    float64            `json:"transfer_cost,omitempty"`
}

// MultiLocationConstraints are the shared limits the solver must respect.
type MultiLocationConstraints struct {
	WorkingCapitalLimit  float64      `json:"working_capital_limit"`
	ProductionCapacity   float64      `json:"production_capacity,omitempty"` // units per day, 0 = unbounded
	MinServiceLevel      ServiceLevel `json:"min_service_level"`
	MaxReorderFrequency  float64      `json:"max_reorder_frequency,omitempty"` // orders per month
	HoldingCostRate      float64      `json:"holding_cost_rate"`
	OrderingCost         float64      `json:"ordering_cost"`
	StorageBufferPercent float64      `json:"storage_buffer_percent,omitempty"` // usable share, default 0.8
}

// MultiLocationRequest drives one solve.
type MultiLocationRequest struct {
	Products    []ProductSpec            `json:"products"`
	Locations   []LocationSpec           `json:"locations"`
	Constraints MultiLocationConstraints `json:"constraints"`
	Objective   Objective                `json:"objective"`
	Method      SolveMethod              `json:"method,omitempty"` // empty = ladder from exact
}

// Validate fails fast on caller contract violations.
func (r MultiLocationRequest) Validate() error {
	if len(r.Products) == 0 {
		return fmt.Errorf("%w: at least one product required", ErrInvalidParameter)
	}
	if len(r.Locations) == 0 {
		return fmt.Errorf("%w: at least one location required", ErrInvalidParameter)
	}
	if !r.Constraints.MinServiceLevel.Valid() {
		return fmt.Errorf("%w: service level %v not in {0.95, 0.98, 0.995}", ErrInvalidParameter, float64(r.Constraints.MinServiceLevel))
	}
	if r.Objective != "" && !r.Objective.Valid() {
		return fmt.Errorf("%w: unknown objective %q", ErrInvalidParameter, r.Objective)
	}
	for _, p := range r.Products {
		if p.ProductID == "" {
			return fmt.Errorf("%w: product id required", ErrInvalidParameter)
		}
		if p.DailyDemand < 0 || p.UnitCost < 0 {
			return fmt.Errorf("%w: product %s has negative demand or cost", ErrInvalidParameter, p.ProductID)
		}
	}
	for _, l := range r.Locations {
		if l.LocationID == "" {
			return fmt.Errorf("%w: location id required", ErrInvalidParameter)
		}
		if l.StorageCapacity < 0 {
			return fmt.Errorf("%w: location %s has negative capacity", ErrInvalidParameter, l.LocationID)
		}
	}
	return nil
}

// Allocation is the plan entry for one (product, location) pair.
type Allocation struct {
	Stock        float64 `json:"stock"`
	Order        float64 `json:"order"`
	ReorderPoint float64 `json:"reorder_point"`
}

// PlanKey builds the allocation map key for a (product, location) pair.
// All solvers key their output identically so plans are comparable.
func PlanKey(productID, locationID string) string {
	return productID + ":" + locationID
}

// ConstraintViolation records a soft-constraint breach in a constrained plan.
type ConstraintViolation struct {
	Constraint string  `json:"constraint"`
	Detail     string  `json:"detail"`
	Magnitude  float64 `json:"magnitude"`
}

// MultiLocationPlan is the output of one solve. The meaning of
// ObjectiveValue depends on the method; ObjectiveNote says what it is.
type MultiLocationPlan struct {
	PlanID         string                `json:"plan_id"`
	Status         PlanStatus            `json:"status"`
	Method         SolveMethod           `json:"method"`
	Objective      Objective             `json:"objective"`
	Allocations    map[string]Allocation `json:"allocations"`
	ObjectiveValue float64               `json:"objective_value"`
	ObjectiveNote  string                `json:"objective_note,omitempty"`
	Violations     []ConstraintViolation `json:"violations,omitempty"`
	GeneratedAt    time.Time             `json:"generated_at"`
}
