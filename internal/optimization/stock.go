// Package optimization converts demand forecasts into inventory parameters:
// economic order quantities, safety stock, reorder points and ABC/slow-mover
// classification.
package optimization

import (
	"math"

	"github.com/demandcast/demandcast/internal/models"
)

// storageHeadroom is the usable share of nominal storage capacity.
const storageHeadroom = 0.8

// EOQ computes the economic order quantity sqrt(2*D*S/H) where D is annual
// demand, S the ordering cost per order and H the annual holding cost per
// unit (holding rate times unit cost). The second return is false for
// degenerate inputs; callers must emit an invalid sentinel result rather
// than a computed value.
func EOQ(annualDemand, orderingCost, unitCost, holdingCostRate float64) (float64, bool) {
	if annualDemand <= 0 || orderingCost <= 0 || unitCost <= 0 || holdingCostRate <= 0 {
		return 0, false
	}
	holdingCost := holdingCostRate * unitCost
	return math.Sqrt(2 * annualDemand * orderingCost / holdingCost), true
}

// ClipEOQ applies storage and working-capital limits to a raw EOQ. Storage
// is applied at 80% of nominal capacity to leave headroom.
func ClipEOQ(eoq, unitCost float64, storageCapacity *float64, workingCapitalLimit *float64) float64 {
	if storageCapacity != nil {
		if limit := *storageCapacity * storageHeadroom; eoq > limit {
			eoq = limit
		}
	}
	if workingCapitalLimit != nil && unitCost > 0 {
		if limit := *workingCapitalLimit / unitCost; eoq > limit {
			eoq = limit
		}
	}
	return eoq
}

// SafetyStock computes service-level driven buffer stock from demand and
// lead-time variability, floored at one day of average demand.
func SafetyStock(serviceLevel models.ServiceLevel, dailyDemandMean, dailyDemandStd, leadTimeDays, leadTimeStdDev float64) float64 {
	z := serviceLevel.ZScore()
	variance := leadTimeDays*dailyDemandStd*dailyDemandStd +
		dailyDemandMean*dailyDemandMean*leadTimeStdDev*leadTimeStdDev
	ss := z * math.Sqrt(variance)
	if ss < dailyDemandMean {
		ss = dailyDemandMean
	}
	return ss
}

// ReorderPoint is lead-time demand plus safety stock.
func ReorderPoint(dailyDemandMean, leadTimeDays, safetyStock float64) float64 {
	return dailyDemandMean*leadTimeDays + safetyStock
}
