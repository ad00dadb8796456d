package forecasting

import (
	"context"
	"fmt"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/timeseries"

	"github.com/demandcast/demandcast/internal/models"
)

// ARIMA grid-searches order triplets and keeps the fit with the lowest
// corrected information criterion.
type ARIMA struct{}

func (a *ARIMA) Name() models.Algorithm { return models.AlgorithmARIMA }

const arimaMinObservations = 30

func (a *ARIMA) FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error) {
	demands := series.Demands()
	if len(demands) < arimaMinObservations {
		return nil, fmt.Errorf("%w: arima needs at least %d points, got %d", models.ErrInsufficientData, arimaMinObservations, len(demands))
	}

	ts := timeseries.New(demands)
	var best *arima.Model
	var bestP, bestD, bestQ int

	for p := 0; p <= 2; p++ {
		for d := 0; d <= 1; d++ {
			for q := 0; q <= 2; q++ {
				if p == 0 && q == 0 {
					continue
				}
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: arima grid search interrupted", models.ErrSolverTimeout)
				}
				model := arima.New(p, d, q)
				if err := model.Fit(ts); err != nil {
					continue
				}
				if best == nil || model.AICc < best.AICc {
					best = model
					bestP, bestD, bestQ = p, d, q
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no arima order converged", models.ErrModelFit)
	}

	forecast, err := best.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: arima predict: %v", models.ErrModelFit, err)
	}
	for i := range forecast {
		if forecast[i] < 0 {
			forecast[i] = 0
		}
	}

	residuals := best.Residuals()
	std := stdDev(residuals)
	lower, upper := bandsFromStd(forecast, std)

	actuals := demands[len(demands)-len(residuals):]
	return &models.ForecastResult{
		Forecast: forecast,
		Lower:    lower,
		Upper:    upper,
		Accuracy: residualAccuracy(actuals, residuals),
		ModelParameters: map[string]any{
			"p":    bestP,
			"d":    bestD,
			"q":    bestQ,
			"aicc": best.AICc,
		},
	}, nil
}
