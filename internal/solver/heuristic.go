package solver

import (
	"math"
	"sort"

	"github.com/demandcast/demandcast/internal/models"
)

// budgets is the accumulator threaded through the greedy fold: remaining
// capital, per-location storage volume and per-product monthly production.
type budgets struct {
	capital    float64
	boundedCap bool
	storage    []float64
	production map[int]float64
}

// solveHeuristic allocates cells one at a time in priority order, clipping
// each against the remaining budgets and recording a violation whenever a
// clip lands below the reorder point. It always terminates in one pass.
func (s *Solver) solveHeuristic(p *problem, objective models.Objective) *models.MultiLocationPlan {
	order := make([]int, len(p.pairs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := priority(p, p.pairs[order[a]]), priority(p, p.pairs[order[b]])
		if pa != pb {
			return pa > pb
		}
		return p.pairs[order[a]].key < p.pairs[order[b]].key
	})

	remaining := budgets{
		capital:    p.req.Constraints.WorkingCapitalLimit,
		boundedCap: p.req.Constraints.WorkingCapitalLimit > 0,
		storage:    append([]float64(nil), p.usable...),
		production: make(map[int]float64),
	}
	if daily := p.req.Constraints.ProductionCapacity; daily > 0 {
		for pi := range p.req.Products {
			remaining.production[pi] = daily * daysPerMonth
		}
	}

	plan := s.newPlan(models.MethodHeuristic, objective)
	plan.Allocations = make(map[string]models.Allocation, len(p.pairs))
	for _, idx := range order {
		cell := p.pairs[idx]
		alloc, next, violation := allocateCell(p, cell, remaining)
		remaining = next
		plan.Allocations[cell.key] = alloc
		if violation != nil {
			plan.Violations = append(plan.Violations, *violation)
		}
	}

	if len(plan.Violations) == 0 {
		plan.Status = models.PlanFeasible
	} else {
		plan.Status = models.PlanConstrained
	}
	plan.ObjectiveValue = p.objectiveValue(plan.Allocations, objective, s.balancedWeight)
	plan.ObjectiveNote = "greedy allocation cost; not comparable with exact or stochastic values"
	return plan
}

// priority orders cells by product priority weight, then by demand value so
// high-throughput cells claim budget first.
func priority(p *problem, cell pair) float64 {
	prod := p.productOf(cell)
	w := prod.PriorityWeight
	if w <= 0 {
		w = 1
	}
	return w * cell.dailyDemand * prod.UnitCost
}

// allocateCell computes the unconstrained policy for one cell, clips it
// against the remaining budgets and returns the updated accumulator.
func allocateCell(p *problem, cell pair, remaining budgets) (models.Allocation, budgets, *models.ConstraintViolation) {
	prod := p.productOf(cell)
	volume := prod.UnitVolume
	if volume <= 0 {
		volume = 1
	}

	want := math.Max(cell.minCoverage, cell.baseROP)
	stock := want

	if limit := remaining.storage[cell.location] / volume; stock > limit {
		stock = math.Max(0, limit)
	}
	if remaining.boundedCap && prod.UnitCost > 0 {
		if limit := remaining.capital / prod.UnitCost; stock > limit {
			stock = math.Max(0, limit)
		}
	}

	orderQty := cell.baseOrder
	if prod.MinOrderQty > 0 && orderQty < prod.MinOrderQty {
		orderQty = prod.MinOrderQty
	}
	if budget, ok := remaining.production[cell.product]; ok && orderQty > budget {
		orderQty = math.Max(0, budget)
	}

	// Floor so whole-unit rounding can never exceed a budget.
	alloc := models.Allocation{
		Stock: math.Floor(stock),
		Order: math.Floor(orderQty),
	}
	alloc.ReorderPoint = math.Min(math.Floor(cell.baseROP), alloc.Stock)

	remaining.storage[cell.location] -= alloc.Stock * volume
	if remaining.boundedCap {
		remaining.capital -= alloc.Stock * prod.UnitCost
	}
	if budget, ok := remaining.production[cell.product]; ok {
		remaining.production[cell.product] = budget - alloc.Order
	}

	var violation *models.ConstraintViolation
	if alloc.Stock < math.Floor(cell.baseROP) {
		violation = &models.ConstraintViolation{
			Constraint: "reorder_consistency",
			Detail:     cell.key + " clipped below its reorder point by budget limits",
			Magnitude:  cell.baseROP - alloc.Stock,
		}
	}
	return alloc, remaining, violation
}
