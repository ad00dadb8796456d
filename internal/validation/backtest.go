// Package validation backtests forecasting models over rolling historical
// windows, ranks competing models and tracks live forecast accuracy.
package validation

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/forecasting"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

const minTrainPoints = 30

// Validator runs backtests through the forecasting engine.
type Validator struct {
	engine  *forecasting.Engine
	metrics observability.MetricsRegistry
	logger  *zap.Logger
}

// NewValidator builds a validator on top of a forecasting engine.
func NewValidator(engine *forecasting.Engine, metrics observability.MetricsRegistry, logger *zap.Logger) *Validator {
	return &Validator{engine: engine, metrics: metrics, logger: logger}
}

// step is one rolling backtest window's predictions against actuals.
type step struct {
	predicted []float64
	lower     []float64
	upper     []float64
	actual    []float64
}

// Backtest trains on the first ~40% of the series and steps forward in
// half-horizon increments, each time forecasting the next horizon days and
// comparing against the actuals. Steps with fewer than 30 training points
// are skipped.
func (v *Validator) Backtest(ctx context.Context, series models.TimeSeries, modelType models.Algorithm, validationDays, horizon int) (*models.ValidationResult, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", models.ErrInvalidParameter)
	}
	if modelType == "" {
		modelType = models.AlgorithmAuto
	}
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", models.ErrInvalidParameter, modelType)
	}

	n := len(series)
	if validationDays > 0 && validationDays < n {
		series = series[n-validationDays:]
		n = len(series)
	}
	if n < minTrainPoints+horizon {
		return nil, fmt.Errorf("%w: backtest needs at least %d points, got %d", models.ErrInsufficientData, minTrainPoints+horizon, n)
	}

	trainEnd := int(0.4 * float64(n))
	if trainEnd < minTrainPoints {
		trainEnd = minTrainPoints
	}
	stepSize := horizon / 2
	if stepSize < 1 {
		stepSize = 1
	}

	var steps []step
	for t := trainEnd; t+1 < n; t += stepSize {
		if t < minTrainPoints {
			continue
		}
		window := horizon
		if t+window > n {
			window = n - t
		}

		result, err := v.engine.Forecast(ctx, series[:t], models.ForecastRequest{
			HorizonDays: window,
			Algorithm:   modelType,
		})
		if err != nil {
			return nil, err
		}
		if result.Status != models.ForecastOK {
			v.logger.Debug("backtest step failed",
				zap.String("model", string(modelType)),
				zap.Int("train_points", t))
			continue
		}

		actual := make([]float64, window)
		for i := 0; i < window; i++ {
			actual[i] = series[t+i].Demand
		}
		steps = append(steps, step{
			predicted: result.Forecast[:window],
			lower:     result.Lower[:window],
			upper:     result.Upper[:window],
			actual:    actual,
		})
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no backtest step produced a forecast", models.ErrModelFit)
	}

	result := scoreSteps(steps)
	result.ModelType = modelType
	result.ValidationPeriodDays = n - trainEnd
	v.metrics.IncrementBacktests(string(modelType))
	return result, nil
}

// scoreSteps computes accuracy metrics over the concatenation of all step
// predictions.
func scoreSteps(steps []step) *models.ValidationResult {
	var absSum, sqSum, pctSum, biasSum float64
	var covered, total, pctCount int
	var trendHits, trendTotal int

	for _, s := range steps {
		for i := range s.predicted {
			err := s.actual[i] - s.predicted[i]
			absSum += math.Abs(err)
			sqSum += err * err
			biasSum += -err // positive bias = over-forecasting
			if s.actual[i] != 0 {
				pctSum += math.Abs(err) / s.actual[i]
				pctCount++
			}
			if s.actual[i] >= s.lower[i] && s.actual[i] <= s.upper[i] {
				covered++
			}
			total++

			if i > 0 {
				predDelta := s.predicted[i] - s.predicted[i-1]
				actDelta := s.actual[i] - s.actual[i-1]
				if predDelta*actDelta > 0 || (predDelta == 0 && actDelta == 0) {
					trendHits++
				}
				trendTotal++
			}
		}
	}

	fTotal := float64(total)
	result := &models.ValidationResult{
		MAE:              absSum / fTotal,
		MSE:              sqSum / fTotal,
		RMSE:             math.Sqrt(sqSum / fTotal),
		Bias:             biasSum / fTotal,
		IntervalCoverage: float64(covered) / fTotal,
		TotalPredictions: total,
	}
	if pctCount > 0 {
		result.MAPE = pctSum / float64(pctCount)
	}
	result.AccuracyScore = 1 - result.MAPE
	if result.AccuracyScore < 0 {
		result.AccuracyScore = 0
	}
	if trendTotal > 0 {
		result.TrendAccuracy = float64(trendHits) / float64(trendTotal)
	}
	result.MAPECategory = models.CategorizeMAPE(result.MAPE)
	return result
}
