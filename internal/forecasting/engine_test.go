package forecasting

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

func newTestEngine() *Engine {
	return NewEngine(nil, observability.NewNoOpRegistry(), zap.NewNop())
}

// genSeries builds a daily series of n points from a demand function of the
// day index.
func genSeries(n int, demand func(i int) float64) models.TimeSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.TimeSeries, n)
	for i := 0; i < n; i++ {
		d := demand(i)
		if d < 0 {
			d = 0
		}
		series[i] = models.DataPoint{
			Date:      start.AddDate(0, 0, i),
			Demand:    d,
			Revenue:   d * 9.99,
			UnitPrice: 9.99,
		}
	}
	return series
}

// weeklySeries has a stable weekly shape with mild noise.
func weeklySeries(n int) models.TimeSeries {
	return genSeries(n, func(i int) float64 {
		base := 100.0
		weekly := 20 * math.Sin(2*math.Pi*float64(i)/7)
		noise := 5 * math.Sin(float64(i)*1.7)
		return base + weekly + noise
	})
}

func TestForecastBoundsAndNonNegativity(t *testing.T) {
	engine := newTestEngine()
	series := weeklySeries(120)

	algorithms := []models.Algorithm{
		models.AlgorithmMovingAverage,
		models.AlgorithmExponentialSmoothing,
		models.AlgorithmARIMA,
		models.AlgorithmRegression,
		models.AlgorithmEnsemble,
	}
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			result, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
				HorizonDays: 14,
				Algorithm:   alg,
			})
			require.NoError(t, err)
			require.Equal(t, models.ForecastOK, result.Status)
			require.Len(t, result.Forecast, 14)
			require.Len(t, result.Lower, 14)
			require.Len(t, result.Upper, 14)
			for i := range result.Forecast {
				assert.GreaterOrEqual(t, result.Forecast[i], 0.0)
				assert.GreaterOrEqual(t, result.Lower[i], 0.0)
				assert.LessOrEqual(t, result.Lower[i], result.Forecast[i])
				assert.GreaterOrEqual(t, result.Upper[i], result.Forecast[i])
			}
		})
	}
}

func TestForecastFallbackTermination(t *testing.T) {
	engine := newTestEngine()

	// Two points cannot support any algorithm; the engine must return a
	// structured failure, not an error.
	series := genSeries(2, func(i int) float64 { return 10 })
	result, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.AlgorithmEnsemble,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ForecastFailed, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestForecastEmptySeries(t *testing.T) {
	engine := newTestEngine()
	result, err := engine.Forecast(context.Background(), nil, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.AlgorithmMovingAverage,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ForecastFailed, result.Status)
}

func TestForecastShortSeriesFallsBack(t *testing.T) {
	engine := newTestEngine()

	// 10 points cannot support ARIMA; the chain must land on a simpler
	// algorithm and still succeed.
	series := genSeries(10, func(i int) float64 { return 50 + float64(i%3) })
	result, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.AlgorithmARIMA,
	})
	require.NoError(t, err)
	require.Equal(t, models.ForecastOK, result.Status)
	assert.NotEqual(t, models.AlgorithmARIMA, result.Algorithm)
}

func TestForecastInvalidParameters(t *testing.T) {
	engine := newTestEngine()
	series := weeklySeries(30)

	_, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays: 0,
		Algorithm:   models.AlgorithmMovingAverage,
	})
	require.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.Algorithm("quantum"),
	})
	require.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestAutoSelection(t *testing.T) {
	engine := newTestEngine()

	short := genSeries(20, func(i int) float64 { return 10 })
	assert.Equal(t, models.AlgorithmMovingAverage, engine.selectAlgorithm(short))

	// Long trending series routes to the ensemble.
	trending := genSeries(150, func(i int) float64 { return 50 + 2*float64(i) })
	assert.Equal(t, models.AlgorithmEnsemble, engine.selectAlgorithm(trending))

	// Strong weekly seasonality without trend routes to exponential smoothing.
	seasonal := genSeries(80, func(i int) float64 {
		return 100 + 40*math.Sin(2*math.Pi*float64(i)/7)
	})
	assert.Equal(t, models.AlgorithmExponentialSmoothing, engine.selectAlgorithm(seasonal))
}

func TestExternalFactors(t *testing.T) {
	engine := newTestEngine()
	series := genSeries(30, func(i int) float64 { return 100 })

	baseline, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.AlgorithmMovingAverage,
	})
	require.NoError(t, err)

	boosted, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays:     7,
		Algorithm:       models.AlgorithmMovingAverage,
		ExternalFactors: map[string]float64{"promotionFactor": 2.0},
	})
	require.NoError(t, err)

	for i := range baseline.Forecast {
		assert.InDelta(t, 2*baseline.Forecast[i], boosted.Forecast[i], 1e-9)
	}

	// A market collapse cannot push demand below zero.
	collapsed, err := engine.Forecast(context.Background(), series, models.ForecastRequest{
		HorizonDays:     7,
		Algorithm:       models.AlgorithmMovingAverage,
		ExternalFactors: map[string]float64{"marketTrend": -2.0},
	})
	require.NoError(t, err)
	for i := range collapsed.Forecast {
		assert.Equal(t, 0.0, collapsed.Forecast[i])
	}
}

func TestMovingAverageCalendarShape(t *testing.T) {
	// Weekends sell double; the forecast should carry that shape forward.
	series := genSeries(60, func(i int) float64 {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		day := start.AddDate(0, 0, i).Weekday()
		if day == time.Saturday || day == time.Sunday {
			return 200
		}
		return 100
	})

	ma := &MovingAverage{}
	result, err := ma.FitPredict(context.Background(), series, 14)
	require.NoError(t, err)

	start := series.LastDate().AddDate(0, 0, 1)
	var weekend, weekday []float64
	for i, v := range result.Forecast {
		day := start.AddDate(0, 0, i).Weekday()
		if day == time.Saturday || day == time.Sunday {
			weekend = append(weekend, v)
		} else {
			weekday = append(weekday, v)
		}
	}
	require.NotEmpty(t, weekend)
	require.NotEmpty(t, weekday)
	assert.Greater(t, mean(weekend), mean(weekday))
}

func TestDeadlineFallsBackToCheapestMethod(t *testing.T) {
	engine := newTestEngine()
	series := weeklySeries(150)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Forecast(ctx, series, models.ForecastRequest{
		HorizonDays: 7,
		Algorithm:   models.AlgorithmEnsemble,
	})
	require.NoError(t, err)
	require.Equal(t, models.ForecastOK, result.Status)
	assert.Equal(t, models.AlgorithmMovingAverage, result.Algorithm)
}
