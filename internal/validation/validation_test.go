package validation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/forecasting"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

func newTestValidator() *Validator {
	engine := forecasting.NewEngine(nil, observability.NewNoOpRegistry(), zap.NewNop())
	return NewValidator(engine, observability.NewNoOpRegistry(), zap.NewNop())
}

func genSeries(n int, demand func(i int) float64) models.TimeSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.TimeSeries, n)
	for i := 0; i < n; i++ {
		d := demand(i)
		if d < 0 {
			d = 0
		}
		series[i] = models.DataPoint{Date: start.AddDate(0, 0, i), Demand: d, Revenue: d * 4, UnitPrice: 4}
	}
	return series
}

func TestBacktestStableSeries(t *testing.T) {
	v := newTestValidator()
	series := genSeries(120, func(i int) float64 {
		return 100 + 5*math.Sin(float64(i)/3)
	})

	result, err := v.Backtest(context.Background(), series, models.AlgorithmMovingAverage, 0, 14)
	require.NoError(t, err)

	assert.Equal(t, models.AlgorithmMovingAverage, result.ModelType)
	assert.Greater(t, result.TotalPredictions, 0)
	// A near-constant series should backtest well.
	assert.Less(t, result.MAPE, 0.15)
	assert.Greater(t, result.AccuracyScore, 0.8)
	assert.GreaterOrEqual(t, result.IntervalCoverage, 0.5)
	assert.Equal(t, models.CategorizeMAPE(result.MAPE), result.MAPECategory)
}

func TestBacktestInsufficientData(t *testing.T) {
	v := newTestValidator()
	series := genSeries(20, func(i int) float64 { return 50 })

	_, err := v.Backtest(context.Background(), series, models.AlgorithmMovingAverage, 0, 7)
	require.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestBacktestInvalidParameters(t *testing.T) {
	v := newTestValidator()
	series := genSeries(120, func(i int) float64 { return 50 })

	_, err := v.Backtest(context.Background(), series, models.AlgorithmMovingAverage, 0, 0)
	require.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = v.Backtest(context.Background(), series, models.Algorithm("psychic"), 0, 7)
	require.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestCompareModelsRanksAllCandidates(t *testing.T) {
	v := newTestValidator()
	series := genSeries(150, func(i int) float64 {
		return 80 + 20*math.Sin(2*math.Pi*float64(i)/7) + float64(i)/10
	})

	comparison, err := v.CompareModels(context.Background(), series,
		[]models.Algorithm{models.AlgorithmMovingAverage, models.AlgorithmExponentialSmoothing}, 7)
	require.NoError(t, err)
	require.NotEmpty(t, comparison.Ranking)

	assert.Equal(t, comparison.Ranking[0].ModelType, comparison.BestModel)
	assert.NotEmpty(t, comparison.Recommendation)
	for i := 1; i < len(comparison.Ranking); i++ {
		assert.GreaterOrEqual(t, comparison.Ranking[i].CompositeScore, comparison.Ranking[i-1].CompositeScore)
	}
}

func TestMAPECategories(t *testing.T) {
	assert.Equal(t, models.MAPEExcellent, models.CategorizeMAPE(0.08))
	assert.Equal(t, models.MAPEGood, models.CategorizeMAPE(0.15))
	assert.Equal(t, models.MAPEReasonable, models.CategorizeMAPE(0.35))
	assert.Equal(t, models.MAPEPoor, models.CategorizeMAPE(0.80))
	assert.Equal(t, models.MAPEVeryPoor, models.CategorizeMAPE(1.50))
}

func TestTrackAccuracyTrend(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	improving := make([]models.AccuracyRecord, 30)
	for i := range improving {
		// error shrinks over time
		actual := 100.0
		forecast := actual * (0.6 + 0.012*float64(i))
		improving[i] = models.AccuracyRecord{
			Date:      start.AddDate(0, 0, i),
			ModelType: models.AlgorithmARIMA,
			Forecast:  forecast,
			Actual:    actual,
		}
	}
	summary := TrackAccuracy(improving)
	assert.Equal(t, models.TrendImproving, summary.Trend)
	assert.Greater(t, summary.TrendSlope, 0.01)
	assert.Equal(t, 30, summary.Records)
	assert.Contains(t, summary.ByModel, models.AlgorithmARIMA)

	stable := make([]models.AccuracyRecord, 30)
	for i := range stable {
		stable[i] = models.AccuracyRecord{
			Date:      start.AddDate(0, 0, i),
			ModelType: models.AlgorithmMovingAverage,
			Forecast:  98,
			Actual:    100,
		}
	}
	summary = TrackAccuracy(stable)
	assert.Equal(t, models.TrendFlat, summary.Trend)
	assert.InDelta(t, 0.98, summary.AverageAccuracy, 1e-9)
}

func TestTrackAccuracyEmpty(t *testing.T) {
	summary := TrackAccuracy(nil)
	assert.Equal(t, models.TrendFlat, summary.Trend)
	assert.Zero(t, summary.Records)
}
