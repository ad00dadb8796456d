package forecasting

import (
	"context"
	"fmt"
	"math"

	"github.com/demandcast/demandcast/internal/models"
)

// ExponentialSmoothing implements Holt-Winters with additive trend and
// additive seasonality. Series shorter than 14 points get simple
// exponential smoothing instead.
type ExponentialSmoothing struct{}

func (e *ExponentialSmoothing) Name() models.Algorithm { return models.AlgorithmExponentialSmoothing }

func (e *ExponentialSmoothing) FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error) {
	demands := series.Demands()
	n := len(demands)
	if n < 3 {
		return nil, fmt.Errorf("%w: exponential smoothing needs at least 3 points, got %d", models.ErrInsufficientData, n)
	}

	if n < 14 {
		return simpleExponential(demands, horizon)
	}

	// Monthly seasonality only when several full cycles are observed.
	period := 7
	if n >= 120 {
		period = 30
	}
	if n < 2*period {
		period = 7
	}

	forecast, residuals, params, err := holtWinters(demands, period, horizon)
	if err != nil {
		return nil, err
	}
	for i := range forecast {
		if forecast[i] < 0 {
			forecast[i] = 0
		}
	}

	std := stdDev(residuals)
	lower, upper := bandsFromStd(forecast, std)

	return &models.ForecastResult{
		Forecast:        forecast,
		Lower:           lower,
		Upper:           upper,
		Accuracy:        residualAccuracy(demands[period:], residuals),
		ModelParameters: params,
	}, nil
}

// holtWinters fits additive Holt-Winters by grid searching the smoothing
// constants for minimal one-step squared error.
func holtWinters(demands []float64, period, horizon int) ([]float64, []float64, map[string]any, error) {
	grid := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	bestSSE := math.Inf(1)
	var bestAlpha, bestBeta, bestGamma float64
	var bestForecast, bestResiduals []float64

	for _, alpha := range grid {
		for _, beta := range grid {
			for _, gamma := range grid {
				forecast, residuals, sse := holtWintersFit(demands, period, horizon, alpha, beta, gamma)
				if math.IsNaN(sse) || math.IsInf(sse, 0) {
					continue
				}
				if sse < bestSSE {
					bestSSE = sse
					bestAlpha, bestBeta, bestGamma = alpha, beta, gamma
					bestForecast, bestResiduals = forecast, residuals
				}
			}
		}
	}

	if bestForecast == nil {
		return nil, nil, nil, fmt.Errorf("%w: holt-winters did not converge", models.ErrModelFit)
	}
	params := map[string]any{
		"alpha":  bestAlpha,
		"beta":   bestBeta,
		"gamma":  bestGamma,
		"period": period,
		"sse":    bestSSE,
	}
	return bestForecast, bestResiduals, params, nil
}

// holtWintersFit runs one additive Holt-Winters pass and extends the fit
// over the horizon.
func holtWintersFit(demands []float64, period, horizon int, alpha, beta, gamma float64) ([]float64, []float64, float64) {
	n := len(demands)

	// Initialize level/trend from the first cycle, seasonals from
	// first-cycle deviations.
	level := mean(demands[:period])
	trend := 0.0
	if n >= 2*period {
		trend = (mean(demands[period:2*period]) - level) / float64(period)
	}
	seasonals := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonals[i] = demands[i] - level
	}

	var sse float64
	residuals := make([]float64, 0, n-period)
	for i := period; i < n; i++ {
		s := i % period
		predicted := level + trend + seasonals[s]
		err := demands[i] - predicted
		residuals = append(residuals, err)
		sse += err * err

		prevLevel := level
		level = alpha*(demands[i]-seasonals[s]) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonals[s] = gamma*(demands[i]-level) + (1-gamma)*seasonals[s]
	}

	forecast := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		s := (n + h) % period
		forecast[h] = level + float64(h+1)*trend + seasonals[s]
	}
	return forecast, residuals, sse
}

// simpleExponential fits SES with a grid-searched alpha and projects a
// flat level.
func simpleExponential(demands []float64, horizon int) (*models.ForecastResult, error) {
	bestSSE := math.Inf(1)
	bestAlpha := 0.3
	var bestLevel float64
	var bestResiduals []float64

	for alpha := 0.1; alpha <= 0.9; alpha += 0.1 {
		level := demands[0]
		var sse float64
		residuals := make([]float64, 0, len(demands)-1)
		for _, d := range demands[1:] {
			err := d - level
			residuals = append(residuals, err)
			sse += err * err
			level = alpha*d + (1-alpha)*level
		}
		if sse < bestSSE {
			bestSSE = sse
			bestAlpha = alpha
			bestLevel = level
			bestResiduals = residuals
		}
	}

	forecast := make([]float64, horizon)
	for i := range forecast {
		v := bestLevel
		if v < 0 {
			v = 0
		}
		forecast[i] = v
	}
	std := stdDev(bestResiduals)
	lower, upper := bandsFromStd(forecast, std)

	return &models.ForecastResult{
		Forecast: forecast,
		Lower:    lower,
		Upper:    upper,
		Accuracy: residualAccuracy(demands[1:], bestResiduals),
		ModelParameters: map[string]any{
			"alpha": bestAlpha,
			"level": bestLevel,
			"sse":   bestSSE,
		},
	}, nil
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// residualAccuracy computes metrics from one-step-ahead residuals against
// the actuals they were measured on.
func residualAccuracy(actuals, residuals []float64) models.AccuracyMetrics {
	n := len(residuals)
	if n == 0 || len(actuals) != n {
		return models.AccuracyMetrics{}
	}
	var absSum, sqSum, pctSum float64
	pctCount := 0
	for i, r := range residuals {
		absSum += math.Abs(r)
		sqSum += r * r
		if actuals[i] != 0 {
			pctSum += math.Abs(r) / actuals[i]
			pctCount++
		}
	}
	metrics := models.AccuracyMetrics{
		MAE:  absSum / float64(n),
		RMSE: math.Sqrt(sqSum / float64(n)),
	}
	if pctCount > 0 {
		metrics.MAPE = pctSum / float64(pctCount)
	}
	return metrics
}
