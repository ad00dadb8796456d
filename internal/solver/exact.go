package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/demandcast/demandcast/internal/models"
)

// Variable layout per pair: [stock, order, rop] at offsets 3i, 3i+1, 3i+2.
const varsPerPair = 3

// ropCost is a small positive coefficient that pins the reorder point to its
// lower bound instead of leaving it free inside the feasible region.
const ropCost = 1e-6

// solveExact formulates the allocation as a linear program and solves it
// with the simplex method. Infeasibility comes back as a plan with status
// infeasible and diagnostics from the unconstrained baseline, never as an
// error to the caller.
func (s *Solver) solveExact(p *problem, objective models.Objective) *models.MultiLocationPlan {
	n := len(p.pairs) * varsPerPair
	c := make([]float64, n)
	for i, cell := range p.pairs {
		stockIdx, orderIdx, ropIdx := varsPerPair*i, varsPerPair*i+1, varsPerPair*i+2
		unitCost := p.productOf(cell).UnitCost
		holdPerUnit := (p.req.Constraints.HoldingCostRate + storageCostRate) * unitCost

		switch objective {
		case models.ObjectiveMaximizeService:
			c[stockIdx] = -1
			c[orderIdx] = 0
		case models.ObjectiveBalanced:
			c[stockIdx] = holdPerUnit - s.balancedWeight*holdPerUnit
			c[orderIdx] = p.perUnitOrderCost(cell)
		default:
			c[stockIdx] = holdPerUnit
			c[orderIdx] = p.perUnitOrderCost(cell)
		}
		c[ropIdx] = ropCost
	}

	g, h := p.inequalityConstraints()
	cNew, aNew, bNew := lp.Convert(c, g, h, nil, nil)
	_, xStd, err := lp.Simplex(cNew, aNew, bNew, 1e-8, nil)
	if err != nil {
		plan := s.newPlan(models.MethodExact, objective)
		plan.Status = models.PlanInfeasible
		plan.Allocations = p.baselineAllocations()
		plan.Violations = p.violations(plan.Allocations)
		plan.ObjectiveNote = "no feasible allocation; baseline policy returned with diagnostics"
		return plan
	}

	// Convert splits each free variable into a positive and negative part;
	// recover the original variables before the slack columns.
	x := make([]float64, n)
	for i := range x {
		x[i] = xStd[i] - xStd[n+i]
	}

	plan := s.newPlan(models.MethodExact, objective)
	plan.Allocations = make(map[string]models.Allocation, len(p.pairs))
	for i, cell := range p.pairs {
		plan.Allocations[cell.key] = models.Allocation{
			Stock:        math.Round(math.Max(0, x[varsPerPair*i])),
			Order:        math.Round(math.Max(0, x[varsPerPair*i+1])),
			ReorderPoint: math.Round(math.Max(0, x[varsPerPair*i+2])),
		}
	}
	plan.Status = models.PlanOptimal
	if v := p.violations(plan.Allocations); len(v) > 0 {
		// Rounding to whole units can nick a tight constraint.
		plan.Status = models.PlanConstrained
		plan.Violations = v
	}
	plan.ObjectiveValue = p.objectiveValue(plan.Allocations, objective, s.balancedWeight)
	plan.ObjectiveNote = exactObjectiveNote(objective)
	return plan
}

func exactObjectiveNote(objective models.Objective) string {
	switch objective {
	case models.ObjectiveMaximizeService:
		return "negated mean coverage ratio; lower is better"
	case models.ObjectiveBalanced:
		return "annual cost discounted by weighted coverage; lower is better"
	default:
		return "total annual holding, ordering and storage cost"
	}
}

// inequalityConstraints builds G x <= h over the [stock, order, rop] layout:
// working capital, per-location storage, per-product production, service
// coverage floors, reorder consistency, storage-derived stock ceilings and
// non-negativity.
func (p *problem) inequalityConstraints() (*mat.Dense, []float64) {
	n := len(p.pairs) * varsPerPair
	var rows []float64
	var h []float64
	addRow := func(coeffs map[int]float64, bound float64) {
		row := make([]float64, n)
		for idx, v := range coeffs {
			row[idx] = v
		}
		rows = append(rows, row...)
		h = append(h, bound)
	}

	if limit := p.req.Constraints.WorkingCapitalLimit; limit > 0 {
		coeffs := make(map[int]float64, len(p.pairs))
		for i, cell := range p.pairs {
			coeffs[varsPerPair*i] = p.productOf(cell).UnitCost
		}
		addRow(coeffs, limit)
	}

	for li := range p.req.Locations {
		coeffs := make(map[int]float64)
		for i, cell := range p.pairs {
			if cell.location != li {
				continue
			}
			volume := p.productOf(cell).UnitVolume
			if volume <= 0 {
				volume = 1
			}
			coeffs[varsPerPair*i] = volume
		}
		if len(coeffs) > 0 {
			addRow(coeffs, p.usable[li])
		}
	}

	if daily := p.req.Constraints.ProductionCapacity; daily > 0 {
		for pi := range p.req.Products {
			coeffs := make(map[int]float64)
			for i, cell := range p.pairs {
				if cell.product == pi {
					coeffs[varsPerPair*i+1] = 1
				}
			}
			if len(coeffs) > 0 {
				addRow(coeffs, daily*daysPerMonth)
			}
		}
	}

	for i, cell := range p.pairs {
		stockIdx, orderIdx, ropIdx := varsPerPair*i, varsPerPair*i+1, varsPerPair*i+2
		// stock >= service coverage floor
		addRow(map[int]float64{stockIdx: -1}, -cell.minCoverage)
		// rop >= lead-time demand + safety stock
		addRow(map[int]float64{ropIdx: -1}, -cell.baseROP)
		// rop <= stock
		addRow(map[int]float64{ropIdx: 1, stockIdx: -1}, 0)
		// storage ceiling on this cell alone
		addRow(map[int]float64{stockIdx: 1}, cell.stockCap)
		// non-negativity
		addRow(map[int]float64{stockIdx: -1}, 0)
		addRow(map[int]float64{orderIdx: -1}, 0)
		addRow(map[int]float64{ropIdx: -1}, 0)
	}

	return mat.NewDense(len(h), n, rows), h
}

// baselineAllocations is the unconstrained per-cell policy used for
// infeasibility diagnostics and as the stochastic starting point.
func (p *problem) baselineAllocations() map[string]models.Allocation {
	out := make(map[string]models.Allocation, len(p.pairs))
	for _, cell := range p.pairs {
		stock := math.Max(cell.minCoverage, cell.baseROP)
		out[cell.key] = models.Allocation{
			Stock:        math.Round(stock),
			Order:        math.Round(cell.baseOrder),
			ReorderPoint: math.Round(cell.baseROP),
		}
	}
	return out
}
