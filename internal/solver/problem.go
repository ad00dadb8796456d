// Package solver allocates stock, orders and reorder points across
// products and locations under working-capital, storage, production and
// service-level constraints. Three interchangeable methods produce the same
// plan shape: an exact linear program, a penalized stochastic search and a
// greedy heuristic.
package solver

import (
	"fmt"
	"math"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/optimization"
)

const (
	defaultStorageBuffer = 0.8
	coverageMonths       = 2.0
	daysPerMonth         = 30.0
	storageCostRate      = 0.02
)

// pair is one (product, location) decision cell.
type pair struct {
	product  int
	location int
	key      string

	dailyDemand float64
	demandStd   float64
	minCoverage float64 // stock floor from the service-level constraint
	stockCap    float64 // storage-derived stock ceiling, in units

	baseOrder float64 // unconstrained EOQ
	baseROP   float64 // lead-time demand + safety stock
}

// problem is the shared numeric form all three methods solve.
type problem struct {
	req    models.MultiLocationRequest
	pairs  []pair
	usable []float64 // usable storage per location, in volume units
}

// buildProblem splits each product's demand across locations and
// precomputes the per-pair baseline policy and bounds.
func buildProblem(req models.MultiLocationRequest) (*problem, error) {
	buffer := req.Constraints.StorageBufferPercent
	if buffer <= 0 || buffer > 1 {
		buffer = defaultStorageBuffer
	}

	p := &problem{req: req, usable: make([]float64, len(req.Locations))}
	for li, loc := range req.Locations {
		p.usable[li] = loc.StorageCapacity * buffer
	}

	for pi, prod := range req.Products {
		if prod.UnitCost <= 0 {
			return nil, fmt.Errorf("%w: product %s has no unit cost", models.ErrInvalidParameter, prod.ProductID)
		}
		for li, loc := range req.Locations {
			share := demandShare(loc, prod.ProductID, len(req.Locations))
			if share <= 0 {
				continue
			}
			demand := prod.DailyDemand * share
			sigma := prod.DemandStdDev * share

			annual := demand * 365
			eoq, ok := optimization.EOQ(annual, req.Constraints.OrderingCost, prod.UnitCost, req.Constraints.HoldingCostRate)
			if !ok {
				eoq = 0
			}
			ss := optimization.SafetyStock(req.Constraints.MinServiceLevel, demand, sigma, prod.LeadTimeDays, 0)
			rop := optimization.ReorderPoint(demand, prod.LeadTimeDays, ss)

			volume := prod.UnitVolume
			if volume <= 0 {
				volume = 1
			}
			cell := pair{
				product:     pi,
				location:    li,
				key:         models.PlanKey(prod.ProductID, loc.LocationID),
				dailyDemand: demand,
				demandStd:   sigma,
				minCoverage: demand * daysPerMonth * float64(req.Constraints.MinServiceLevel) * coverageMonths,
				stockCap:    p.usable[li] / volume,
				baseOrder:   eoq,
				baseROP:     rop,
			}
			p.pairs = append(p.pairs, cell)
		}
	}
	if len(p.pairs) == 0 {
		return nil, fmt.Errorf("%w: demand shares leave nothing to allocate", models.ErrInvalidParameter)
	}
	return p, nil
}

func demandShare(loc models.LocationSpec, productID string, nLocations int) float64 {
	if loc.DemandShare == nil {
		return 1 / float64(nLocations)
	}
	return loc.DemandShare[productID]
}

func (p *problem) productOf(c pair) models.ProductSpec   { return p.req.Products[c.product] }
func (p *problem) locationOf(c pair) models.LocationSpec { return p.req.Locations[c.location] }

// perUnitOrderCost spreads the fixed ordering cost over a batch so the cost
// of ordering stays linear in the order quantity.
func (p *problem) perUnitOrderCost(c pair) float64 {
	batch := p.productOf(c).BatchSize
	if batch <= 0 {
		batch = math.Max(c.baseOrder, 1)
	}
	return p.req.Constraints.OrderingCost / batch
}

// annualCost prices one cell's allocation: holding and floor space on the
// held stock, ordering on the yearly order volume.
func (p *problem) annualCost(c pair, a models.Allocation) float64 {
	unitCost := p.productOf(c).UnitCost
	holding := p.req.Constraints.HoldingCostRate * unitCost * a.Stock
	storage := storageCostRate * unitCost * a.Stock
	ordering := 0.0
	if a.Order > 0 {
		ordering = p.perUnitOrderCost(c) * c.dailyDemand * 365
	}
	return holding + storage + ordering
}

// objectiveValue scores a full plan under the requested objective. Lower is
// better for every objective; service objectives are expressed as negated
// coverage so the solvers can minimize uniformly.
func (p *problem) objectiveValue(allocs map[string]models.Allocation, objective models.Objective, balancedWeight float64) float64 {
	var cost, service float64
	for _, c := range p.pairs {
		a := allocs[c.key]
		cost += p.annualCost(c, a)
		if c.minCoverage > 0 {
			ratio := a.Stock / c.minCoverage
			if ratio > 1 {
				ratio = 1
			}
			service += ratio
		} else {
			service += 1
		}
	}
	service /= float64(len(p.pairs))

	switch objective {
	case models.ObjectiveMaximizeService:
		return -service
	case models.ObjectiveBalanced:
		return cost - balancedWeight*service*cost
	default:
		return cost
	}
}

// violations audits a candidate plan against every hard constraint and
// returns named diagnostics for each breach.
func (p *problem) violations(allocs map[string]models.Allocation) []models.ConstraintViolation {
	var out []models.ConstraintViolation

	if limit := p.req.Constraints.WorkingCapitalLimit; limit > 0 {
		var value float64
		for _, c := range p.pairs {
			value += allocs[c.key].Stock * p.productOf(c).UnitCost
		}
		if value > limit {
			out = append(out, models.ConstraintViolation{
				Constraint: "working_capital",
				Detail:     fmt.Sprintf("inventory value %.0f exceeds limit %.0f", value, limit),
				Magnitude:  value - limit,
			})
		}
	}

	used := make([]float64, len(p.req.Locations))
	for _, c := range p.pairs {
		volume := p.productOf(c).UnitVolume
		if volume <= 0 {
			volume = 1
		}
		used[c.location] += allocs[c.key].Stock * volume
	}
	for li, u := range used {
		if u > p.usable[li] {
			out = append(out, models.ConstraintViolation{
				Constraint: "storage",
				Detail:     fmt.Sprintf("location %s needs %.0f of %.0f usable units", p.req.Locations[li].LocationID, u, p.usable[li]),
				Magnitude:  u - p.usable[li],
			})
		}
	}

	if daily := p.req.Constraints.ProductionCapacity; daily > 0 {
		monthly := daily * daysPerMonth
		orders := make(map[int]float64)
		for _, c := range p.pairs {
			orders[c.product] += allocs[c.key].Order
		}
		for pi, total := range orders {
			if total > monthly {
				out = append(out, models.ConstraintViolation{
					Constraint: "production",
					Detail:     fmt.Sprintf("product %s orders %.0f of %.0f monthly capacity", p.req.Products[pi].ProductID, total, monthly),
					Magnitude:  total - monthly,
				})
			}
		}
	}

	for _, c := range p.pairs {
		a := allocs[c.key]
		if a.Stock < c.minCoverage {
			out = append(out, models.ConstraintViolation{
				Constraint: "service_level",
				Detail:     fmt.Sprintf("%s holds %.0f of %.0f units required for coverage", c.key, a.Stock, c.minCoverage),
				Magnitude:  c.minCoverage - a.Stock,
			})
		}
		if a.ReorderPoint > a.Stock {
			out = append(out, models.ConstraintViolation{
				Constraint: "reorder_consistency",
				Detail:     fmt.Sprintf("%s reorder point %.0f above stock %.0f", c.key, a.ReorderPoint, a.Stock),
				Magnitude:  a.ReorderPoint - a.Stock,
			})
		}
	}
	return out
}
