package forecasting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/demandcast/demandcast/internal/models"
)

// MovingAverage forecasts with a weighted blend of 7/14/30 day window means,
// then shapes each horizon day by day-of-week and month-of-year multipliers
// derived from the history. It is the terminal fallback of every chain.
type MovingAverage struct{}

func (m *MovingAverage) Name() models.Algorithm { return models.AlgorithmMovingAverage }

var maWindows = []struct {
	days   int
	weight float64
}{
	{7, 0.5},
	{14, 0.3},
	{30, 0.2},
}

func (m *MovingAverage) FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error) {
	if len(series) < 3 {
		return nil, fmt.Errorf("%w: moving average needs at least 3 points, got %d", models.ErrInsufficientData, len(series))
	}

	demands := series.Demands()
	base, usedWindows := blendedMean(demands)

	dowFactors, monthFactors := calendarFactors(series)

	forecast := make([]float64, horizon)
	start := series.LastDate().AddDate(0, 0, 1)
	for i := 0; i < horizon; i++ {
		date := start.AddDate(0, 0, i)
		v := base * dowFactors[date.Weekday()] * monthFactors[date.Month()]
		if v < 0 {
			v = 0
		}
		forecast[i] = v
	}

	residStd := residualStd(demands, base)
	lower, upper := bandsFromStd(forecast, residStd)

	return &models.ForecastResult{
		Forecast: forecast,
		Lower:    lower,
		Upper:    upper,
		Accuracy: inSampleAccuracy(demands, base),
		ModelParameters: map[string]any{
			"base_level":   base,
			"windows_used": usedWindows,
		},
	}, nil
}

// blendedMean computes the weighted blend of window means, renormalizing
// weights over the windows the series can actually fill.
func blendedMean(demands []float64) (float64, int) {
	var sum, weightSum float64
	used := 0
	for _, w := range maWindows {
		if len(demands) < w.days {
			continue
		}
		tail := demands[len(demands)-w.days:]
		sum += mean(tail) * w.weight
		weightSum += w.weight
		used++
	}
	if used == 0 {
		// series shorter than the smallest window: use everything
		return mean(demands), 0
	}
	return sum / weightSum, used
}

// calendarFactors derives day-of-week and month multipliers as group mean
// over overall mean. Groups with a single observation stay neutral.
func calendarFactors(series models.TimeSeries) (map[time.Weekday]float64, map[time.Month]float64) {
	overall := series.Mean()

	dowSum := make(map[time.Weekday]float64)
	dowCount := make(map[time.Weekday]int)
	monthSum := make(map[time.Month]float64)
	monthCount := make(map[time.Month]int)
	for _, pt := range series {
		dowSum[pt.Date.Weekday()] += pt.Demand
		dowCount[pt.Date.Weekday()]++
		monthSum[pt.Date.Month()] += pt.Demand
		monthCount[pt.Date.Month()]++
	}

	dow := make(map[time.Weekday]float64, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		dow[d] = 1.0
		if overall > 0 && dowCount[d] >= 2 {
			dow[d] = (dowSum[d] / float64(dowCount[d])) / overall
		}
	}
	months := make(map[time.Month]float64, 12)
	for mo := time.January; mo <= time.December; mo++ {
		months[mo] = 1.0
		if overall > 0 && monthCount[mo] >= 2 {
			months[mo] = (monthSum[mo] / float64(monthCount[mo])) / overall
		}
	}
	return dow, months
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// residualStd measures the deviation of the series around a flat level.
func residualStd(demands []float64, level float64) float64 {
	if len(demands) < 2 {
		return 0
	}
	var ss float64
	for _, d := range demands {
		ss += (d - level) * (d - level)
	}
	return math.Sqrt(ss / float64(len(demands)-1))
}

// bandsFromStd builds a 95% confidence band around the forecast.
func bandsFromStd(forecast []float64, std float64) ([]float64, []float64) {
	const z = 1.96
	lower := make([]float64, len(forecast))
	upper := make([]float64, len(forecast))
	for i, v := range forecast {
		lo := v - z*std
		if lo < 0 {
			lo = 0
		}
		lower[i] = lo
		upper[i] = v + z*std
	}
	return lower, upper
}

// inSampleAccuracy reports error metrics of a flat level against the history.
func inSampleAccuracy(demands []float64, level float64) models.AccuracyMetrics {
	var absSum, sqSum, pctSum float64
	pctCount := 0
	for _, d := range demands {
		err := d - level
		absSum += math.Abs(err)
		sqSum += err * err
		if d != 0 {
			pctSum += math.Abs(err) / d
			pctCount++
		}
	}
	n := float64(len(demands))
	metrics := models.AccuracyMetrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
	}
	if pctCount > 0 {
		metrics.MAPE = pctSum / float64(pctCount)
	}
	return metrics
}
