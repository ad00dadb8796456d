package solver

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/demandcast/demandcast/internal/models"
)

// Penalty escalation per constraint class. The ordering encodes which
// constraints the search sacrifices last when the region is tight.
const (
	penaltyCapital    = 1000.0
	penaltyProduction = 500.0
	penaltyStorage    = 100.0
	penaltyService    = 50.0
	penaltyReorder    = 10.0
)

const stochasticSeed = 42

// solveStochastic relaxes the hard constraints into penalty terms and runs a
// CMA-ES search from the baseline policy. The fixed seed keeps plans
// reproducible for identical requests.
func (s *Solver) solveStochastic(p *problem, objective models.Objective) *models.MultiLocationPlan {
	n := len(p.pairs) * varsPerPair
	x0 := make([]float64, n)
	scale := 1.0
	for i, cell := range p.pairs {
		stock := math.Max(cell.minCoverage, cell.baseROP)
		x0[varsPerPair*i] = stock
		x0[varsPerPair*i+1] = cell.baseOrder
		x0[varsPerPair*i+2] = cell.baseROP
		scale = math.Max(scale, stock)
	}

	target := optimize.Problem{
		Func: func(x []float64) float64 {
			return s.penalizedObjective(p, objective, x)
		},
	}
	method := &optimize.CmaEsChol{
		InitStepSize: scale * 0.25,
		Src:          rand.NewPCG(stochasticSeed, 0),
	}
	settings := &optimize.Settings{
		MajorIterations: s.iterations,
	}

	result, err := optimize.Minimize(target, x0, settings, method)
	best := x0
	if err == nil && result != nil && len(result.X) == n {
		best = result.X
	}

	plan := s.newPlan(models.MethodStochastic, objective)
	plan.Allocations = make(map[string]models.Allocation, len(p.pairs))
	for i, cell := range p.pairs {
		plan.Allocations[cell.key] = models.Allocation{
			Stock:        math.Round(math.Max(0, best[varsPerPair*i])),
			Order:        math.Round(math.Max(0, best[varsPerPair*i+1])),
			ReorderPoint: math.Round(math.Max(0, best[varsPerPair*i+2])),
		}
	}
	plan.Violations = p.violations(plan.Allocations)
	if len(plan.Violations) == 0 {
		plan.Status = models.PlanFeasible
	} else {
		plan.Status = models.PlanConstrained
	}
	plan.ObjectiveValue = p.objectiveValue(plan.Allocations, objective, s.balancedWeight)
	plan.ObjectiveNote = "penalized search objective; compare only against other stochastic plans"
	return plan
}

// penalizedObjective is the raw objective plus escalating penalties per
// violated constraint class, evaluated on the flattened decision vector.
func (s *Solver) penalizedObjective(p *problem, objective models.Objective, x []float64) float64 {
	allocs := make(map[string]models.Allocation, len(p.pairs))
	var negativity float64
	for i, cell := range p.pairs {
		stock := x[varsPerPair*i]
		order := x[varsPerPair*i+1]
		rop := x[varsPerPair*i+2]
		for _, v := range []float64{stock, order, rop} {
			if v < 0 {
				negativity += -v
			}
		}
		allocs[cell.key] = models.Allocation{
			Stock:        math.Max(0, stock),
			Order:        math.Max(0, order),
			ReorderPoint: math.Max(0, rop),
		}
	}

	total := p.objectiveValue(allocs, objective, s.balancedWeight) + penaltyReorder*negativity
	for _, v := range p.violations(allocs) {
		switch v.Constraint {
		case "working_capital":
			total += penaltyCapital * v.Magnitude
		case "production":
			total += penaltyProduction * v.Magnitude
		case "storage":
			total += penaltyStorage * v.Magnitude
		case "service_level":
			total += penaltyService * v.Magnitude
		case "reorder_consistency":
			total += penaltyReorder * v.Magnitude
		}
	}
	return total
}
