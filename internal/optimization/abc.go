package optimization

import (
	"sort"

	"github.com/demandcast/demandcast/internal/models"
)

// ABC cumulative value cutoffs.
const (
	tierACutoff = 0.80
	tierBCutoff = 0.95
)

// ClassifyABC ranks products by annual consumption value and assigns tiers
// A/B/C at the 80% and 95% cumulative cutoffs. Products with zero or negative
// value land in tier C. Ties are broken by product ID so repeated runs over
// the same inputs classify identically.
func ClassifyABC(annualValueByProduct map[string]float64) []models.ABCItem {
	items := make([]models.ABCItem, 0, len(annualValueByProduct))
	var total float64
	for id, value := range annualValueByProduct {
		if value < 0 {
			value = 0
		}
		items = append(items, models.ABCItem{ProductID: id, AnnualValue: value})
		total += value
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AnnualValue != items[j].AnnualValue {
			return items[i].AnnualValue > items[j].AnnualValue
		}
		return items[i].ProductID < items[j].ProductID
	})

	var cumulative float64
	for i := range items {
		if total > 0 {
			items[i].ValueShare = items[i].AnnualValue / total
		}
		cumulative += items[i].ValueShare
		items[i].CumulativeShare = cumulative

		switch {
		case total <= 0 || items[i].AnnualValue <= 0:
			items[i].Tier = models.TierC
		case cumulative <= tierACutoff:
			items[i].Tier = models.TierA
		case cumulative <= tierBCutoff:
			items[i].Tier = models.TierB
		default:
			items[i].Tier = models.TierC
		}

		switch items[i].Tier {
		case models.TierA:
			items[i].ReviewFrequency = "weekly"
			items[i].TargetServiceLevel = models.ServiceLevelHigh
		case models.TierB:
			items[i].ReviewFrequency = "monthly"
			items[i].TargetServiceLevel = models.ServiceLevelStandard
		default:
			items[i].ReviewFrequency = "quarterly"
			items[i].TargetServiceLevel = models.ServiceLevelStandard
		}
	}
	return items
}
