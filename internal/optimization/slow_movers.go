package optimization

import (
	"github.com/demandcast/demandcast/internal/models"
)

// Slow-mover thresholds: under two turns a year or stock older than 90 days
// on average flags a product.
const (
	minTurnoverRate = 2.0
	maxAverageAge   = 90.0
)

// SlowMoverInput is the stock snapshot examined for turnover and age.
type SlowMoverInput struct {
	ProductID       string
	AnnualDemand    float64
	AverageStock    float64
	AverageAgeDays  float64
	UnitCost        float64
	HoldingCostRate float64
}

// IdentifySlowMovers flags products whose stock turns over too slowly or sits
// too long, with an obsolescence risk score and a disposition recommendation.
// Products with no stock are never flagged.
func IdentifySlowMovers(inputs []SlowMoverInput) []models.SlowMover {
	var out []models.SlowMover
	for _, in := range inputs {
		if in.AverageStock <= 0 {
			continue
		}
		turnover := in.AnnualDemand / in.AverageStock
		if turnover >= minTurnoverRate && in.AverageAgeDays <= maxAverageAge {
			continue
		}
		risk := in.AverageAgeDays / 365
		if risk > 1 {
			risk = 1
		}
		stockValue := in.AverageStock * in.UnitCost
		out = append(out, models.SlowMover{
			ProductID:        in.ProductID,
			TurnoverRate:     turnover,
			AverageAgeDays:   in.AverageAgeDays,
			ObsolescenceRisk: risk,
			CarryingCost:     in.HoldingCostRate * stockValue,
			StockValue:       stockValue,
			Recommendation:   slowMoverRecommendation(turnover, risk),
		})
	}
	return out
}

func slowMoverRecommendation(turnover, risk float64) string {
	switch {
	case risk > 0.5 && turnover < 1:
		return "liquidate; stock is aging out faster than it sells"
	case risk > 0.5:
		return "markdown to accelerate sell-through before write-off"
	case turnover < 1:
		return "markdown and stop replenishment until turnover recovers"
	default:
		return "monitor; reduce next order quantity"
	}
}
