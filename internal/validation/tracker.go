package validation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/demandcast/demandcast/internal/models"
)

// trendDeadBand is the slope magnitude below which live accuracy is
// considered stable.
const trendDeadBand = 0.01

// TrackAccuracy summarizes a rolling window of past forecasts with
// since-filled-in actuals: average accuracy, a linear trend classification
// and per-model aggregates.
func TrackAccuracy(records []models.AccuracyRecord) models.AccuracySummary {
	if len(records) == 0 {
		return models.AccuracySummary{Trend: models.TrendFlat}
	}

	sorted := make([]models.AccuracyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	accuracies := make([]float64, len(sorted))
	byModelSum := make(map[models.Algorithm]float64)
	byModelCount := make(map[models.Algorithm]int)
	var sum float64
	for i, rec := range sorted {
		acc := recordAccuracy(rec)
		accuracies[i] = acc
		sum += acc
		byModelSum[rec.ModelType] += acc
		byModelCount[rec.ModelType]++
	}

	summary := models.AccuracySummary{
		AverageAccuracy: sum / float64(len(sorted)),
		ByModel:         make(map[models.Algorithm]float64, len(byModelSum)),
		Records:         len(sorted),
	}
	for model, s := range byModelSum {
		summary.ByModel[model] = s / float64(byModelCount[model])
	}

	summary.Trend, summary.TrendSlope = classifyTrend(accuracies)
	return summary
}

// recordAccuracy scores one forecast-vs-actual pair in [0, 1].
func recordAccuracy(rec models.AccuracyRecord) float64 {
	if rec.Actual == 0 {
		if rec.Forecast == 0 {
			return 1
		}
		return 0
	}
	acc := 1 - math.Abs(rec.Forecast-rec.Actual)/rec.Actual
	if acc < 0 {
		return 0
	}
	return acc
}

// classifyTrend fits a line through the accuracy sequence and applies the
// dead-band around zero slope.
func classifyTrend(accuracies []float64) (models.AccuracyTrend, float64) {
	if len(accuracies) < 2 {
		return models.TrendFlat, 0
	}
	xs := make([]float64, len(accuracies))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, accuracies, nil, false)

	switch {
	case slope > trendDeadBand:
		return models.TrendImproving, slope
	case slope < -trendDeadBand:
		return models.TrendDeclining, slope
	default:
		return models.TrendFlat, slope
	}
}
