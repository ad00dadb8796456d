// Package forecasting produces demand forecasts from historical sales series.
//
// Each algorithm implements the Forecaster interface; the Engine coordinates
// algorithm selection, fallback chains, seasonal adjustment and external
// factor application.
package forecasting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

// Forecaster is one forecasting algorithm. FitPredict returns a point
// forecast with confidence bands, or an error when the series cannot
// support the algorithm.
type Forecaster interface {
	Name() models.Algorithm
	FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error)
}

// SeasonalAdjuster applies a multiplicative seasonal profile to a base forecast.
// Implemented by the seasonal package; injected so the engine stays decoupled
// from calendar data.
type SeasonalAdjuster interface {
	Detect(series models.TimeSeries, marketCode string) models.SeasonalProfile
	Apply(base []float64, startDate time.Time, profile models.SeasonalProfile) ([]float64, []models.DailyFactor)
}

// Engine coordinates forecast generation. It is stateless between calls;
// every Forecast invocation is a pure function of the series and request.
type Engine struct {
	seasonal SeasonalAdjuster
	metrics  observability.MetricsRegistry
	logger   *zap.Logger

	chains map[models.Algorithm][]Forecaster
}

// NewEngine builds an engine with the standard algorithm set and fallback chains.
func NewEngine(seasonal SeasonalAdjuster, metrics observability.MetricsRegistry, logger *zap.Logger) *Engine {
	ma := &MovingAverage{}
	es := &ExponentialSmoothing{}
	ar := &ARIMA{}
	reg := &Regression{}
	ens := &Ensemble{}

	// Each chain is tried in order; a later entry only runs when the
	// earlier one fails. Every chain ends in moving average, which
	// succeeds on any series of three or more points.
	chains := map[models.Algorithm][]Forecaster{
		models.AlgorithmMovingAverage:        {ma},
		models.AlgorithmExponentialSmoothing: {es, ma},
		models.AlgorithmARIMA:                {ar, es, ma},
		models.AlgorithmRegression:           {reg, ma},
		models.AlgorithmEnsemble:             {ens, reg, ma},
	}

	return &Engine{seasonal: seasonal, metrics: metrics, logger: logger, chains: chains}
}

// Forecast produces a demand forecast for the request. Algorithm-level
// fitting failures are recovered through the fallback chain; a structured
// failed result is returned only when every candidate fails. Invalid
// request parameters fail fast with an error.
func (e *Engine) Forecast(ctx context.Context, series models.TimeSeries, req models.ForecastRequest) (*models.ForecastResult, error) {
	if req.HorizonDays <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", models.ErrInvalidParameter)
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = models.AlgorithmAuto
	}
	if !algorithm.Valid() {
		return nil, fmt.Errorf("%w: unknown algorithm %q", models.ErrInvalidParameter, algorithm)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	if algorithm == models.AlgorithmAuto {
		algorithm = e.selectAlgorithm(series)
		e.logger.Debug("algorithm auto-selected",
			zap.String("algorithm", string(algorithm)),
			zap.Int("observations", len(series)))
	}

	result := e.runChain(ctx, series, req.HorizonDays, algorithm)
	if result.Status != models.ForecastOK {
		e.metrics.IncrementForecasts(string(algorithm), "failed")
		result.ProductID = req.ProductID
		result.ChannelID = req.ChannelID
		return result, nil
	}

	if req.ApplySeasonal && e.seasonal != nil {
		profile := e.seasonal.Detect(series, req.MarketCode)
		start := series.LastDate().AddDate(0, 0, 1)
		adjusted, factors := e.seasonal.Apply(result.Forecast, start, profile)
		scaleBounds(result, adjusted)
		result.Forecast = adjusted
		result.SeasonalFactors = factors
	}

	if len(req.ExternalFactors) > 0 {
		applyExternalFactors(result, req.ExternalFactors)
	}

	clipResult(result)

	result.ProductID = req.ProductID
	result.ChannelID = req.ChannelID
	result.GeneratedAt = time.Now()
	e.metrics.IncrementForecasts(string(result.Algorithm), "ok")
	return result, nil
}

// runChain tries each forecaster in the chain for the requested algorithm,
// falling through on failure. A context deadline triggers the next cheaper
// method rather than aborting with no result.
func (e *Engine) runChain(ctx context.Context, series models.TimeSeries, horizon int, algorithm models.Algorithm) *models.ForecastResult {
	chain := e.chains[algorithm]
	var lastErr error
	for i := 0; i < len(chain); i++ {
		if ctx.Err() != nil && i < len(chain)-1 {
			// Out of time: skip straight to the cheapest method.
			i = len(chain) - 1
		}
		f := chain[i]
		start := time.Now()
		result, err := f.FitPredict(ctx, series, horizon)
		e.metrics.RecordForecastLatency(string(f.Name()), time.Since(start))
		if err == nil {
			if f.Name() != algorithm {
				e.metrics.IncrementFallbacks(string(algorithm), string(f.Name()))
				e.logger.Debug("forecast fallback",
					zap.String("requested", string(algorithm)),
					zap.String("used", string(f.Name())))
			}
			result.Algorithm = f.Name()
			result.Status = models.ForecastOK
			return result
		}
		lastErr = err
		e.logger.Debug("forecaster failed",
			zap.String("algorithm", string(f.Name())),
			zap.Error(err))
	}
	msg := "all forecasters failed"
	if lastErr != nil {
		msg = fmt.Sprintf("all forecasters failed: %v", lastErr)
	}
	return models.FailedForecast(msg)
}

// selectAlgorithm routes a series to the most suitable algorithm based on
// length, trend and seasonal strength.
func (e *Engine) selectAlgorithm(series models.TimeSeries) models.Algorithm {
	n := len(series)
	if n < 30 {
		return models.AlgorithmMovingAverage
	}

	demands := series.Demands()
	trending := hasTrend(demands)
	strength := seasonalStrength(demands, 7)

	if n >= 100 && trending {
		return models.AlgorithmEnsemble
	}
	if n >= 52 && strength > 0.3 {
		return models.AlgorithmExponentialSmoothing
	}
	if n >= 30 {
		return models.AlgorithmARIMA
	}
	return models.AlgorithmMovingAverage
}

// hasTrend runs a linear slope test against the series index. The slope
// is significant when the fitted line moves the level by more than 10%
// of the mean over the observed window.
func hasTrend(demands []float64) bool {
	n := len(demands)
	if n < 2 {
		return false
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, demands, nil, false)
	mean := stat.Mean(demands, nil)
	if mean == 0 {
		return slope != 0
	}
	return math.Abs(slope*float64(n)/mean) > 0.1
}

// seasonalStrength measures how much of the detrended variance the seasonal
// component explains, in [0, 1].
func seasonalStrength(demands []float64, period int) float64 {
	if len(demands) < 2*period {
		return 0
	}
	decomp := stats.Decompose(timeseries.New(demands), period, "additive")
	if decomp == nil {
		return 0
	}
	var seasPlusResid, resid []float64
	for i := range decomp.Seasonal.Values {
		s := decomp.Seasonal.Values[i]
		r := decomp.Residual.Values[i]
		if math.IsNaN(s) || math.IsNaN(r) {
			continue
		}
		seasPlusResid = append(seasPlusResid, s+r)
		resid = append(resid, r)
	}
	if len(resid) < 2 {
		return 0
	}
	varSR := stat.Variance(seasPlusResid, nil)
	if varSR == 0 {
		return 0
	}
	strength := 1 - stat.Variance(resid, nil)/varSR
	if strength < 0 {
		return 0
	}
	return strength
}

// applyExternalFactors composes multiplicative demand adjustments after
// seasonal adjustment. promotionFactor is applied directly; economicIndicator
// and marketTrend are deltas applied as 1+x.
func applyExternalFactors(result *models.ForecastResult, factors map[string]float64) {
	multiplier := 1.0
	if v, ok := factors["promotionFactor"]; ok {
		multiplier *= v
	}
	if v, ok := factors["economicIndicator"]; ok {
		multiplier *= 1 + v
	}
	if v, ok := factors["marketTrend"]; ok {
		multiplier *= 1 + v
	}
	if multiplier < 0 {
		multiplier = 0
	}
	for i := range result.Forecast {
		result.Forecast[i] *= multiplier
		result.Lower[i] *= multiplier
		result.Upper[i] *= multiplier
	}
}

// scaleBounds rescales the confidence band proportionally to the seasonal
// adjustment so the interval keeps containing the point forecast.
func scaleBounds(result *models.ForecastResult, adjusted []float64) {
	for i := range adjusted {
		ratio := 1.0
		if result.Forecast[i] != 0 {
			ratio = adjusted[i] / result.Forecast[i]
		}
		result.Lower[i] *= ratio
		result.Upper[i] *= ratio
	}
}

// clipResult enforces non-negative demand and interval containment.
func clipResult(result *models.ForecastResult) {
	for i := range result.Forecast {
		if result.Forecast[i] < 0 {
			result.Forecast[i] = 0
		}
		if result.Lower[i] < 0 {
			result.Lower[i] = 0
		}
		if result.Lower[i] > result.Forecast[i] {
			result.Lower[i] = result.Forecast[i]
		}
		if result.Upper[i] < result.Forecast[i] {
			result.Upper[i] = result.Forecast[i]
		}
	}
}
