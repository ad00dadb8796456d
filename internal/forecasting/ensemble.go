package forecasting

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/demandcast/demandcast/internal/models"
)

// Ensemble blends a ridge-regularized linear model with bagged and boosted
// regression trees, weighting each learner inversely to its validation-set
// mean absolute error. The confidence band comes from the spread across
// learners on top of the blended residual.
type Ensemble struct{}

func (e *Ensemble) Name() models.Algorithm { return models.AlgorithmEnsemble }

const ensembleMinObservations = 20

// learner is one fitted member of the ensemble.
type learner struct {
	name    string
	predict func(row []float64) float64
}

func (e *Ensemble) FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error) {
	if len(series) < ensembleMinObservations {
		return nil, fmt.Errorf("%w: ensemble needs at least %d points, got %d", models.ErrInsufficientData, ensembleMinObservations, len(series))
	}
	fs := buildFeatures(series)
	if fs == nil {
		return nil, fmt.Errorf("%w: series too short for feature construction", models.ErrInsufficientData)
	}
	if len(fs.Y) < ensembleMinObservations {
		return nil, fmt.Errorf("%w: ensemble needs at least %d usable samples, got %d", models.ErrInsufficientData, ensembleMinObservations, len(fs.Y))
	}

	holdout := len(fs.Y) / 5
	if holdout < 5 {
		holdout = 5
	}
	split := len(fs.Y) - holdout
	trainX, trainY := fs.X[:split], fs.Y[:split]
	testX, testY := fs.X[split:], fs.Y[split:]

	// Fixed seed keeps ensemble forecasts reproducible across calls.
	rng := rand.New(rand.NewSource(42))

	ridgeWeights, err := fitLinear(trainX, trainY, ridgeLambda)
	if err != nil {
		return nil, err
	}
	bagged := fitBaggedTrees(trainX, trainY, 10, rng)
	boosted := fitBoostedTrees(trainX, trainY, 20, 0.1)

	learners := []learner{
		{"ridge", func(row []float64) float64 { return predictRow(ridgeWeights, row) }},
		{"bagged_trees", bagged.predict},
		{"boosted_trees", boosted.predict},
	}

	// Inverse-MAE weights on the held-out tail.
	weights := make([]float64, len(learners))
	var weightSum float64
	maes := make(map[string]float64, len(learners))
	for i, l := range learners {
		var absSum float64
		for j, row := range testX {
			absSum += math.Abs(testY[j] - l.predict(row))
		}
		mae := absSum / float64(len(testY))
		maes[l.name] = mae
		weights[i] = 1 / (mae + 1e-6)
		weightSum += weights[i]
	}
	for i := range weights {
		weights[i] /= weightSum
	}

	blend := func(row []float64) (float64, float64) {
		preds := make([]float64, len(learners))
		var v float64
		for i, l := range learners {
			preds[i] = l.predict(row)
			v += weights[i] * preds[i]
		}
		return v, stdDev(preds)
	}

	// Recursive forecast over the horizon, feeding blended predictions
	// back into the lag features.
	demands := series.Demands()
	extended := make([]float64, len(demands), len(demands)+horizon)
	copy(extended, demands)
	lastPrice := series[len(series)-1].UnitPrice
	start := series.LastDate().AddDate(0, 0, 1)

	forecast := make([]float64, horizon)
	spreads := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		date := start.AddDate(0, 0, h)
		row := featureRow(extended, date, lastPrice, len(extended))
		v, spread := blend(row)
		if v < 0 {
			v = 0
		}
		forecast[h] = v
		spreads[h] = spread
		extended = append(extended, v)
	}

	residuals := make([]float64, len(fs.Y))
	for i := range fs.Y {
		v, _ := blend(fs.X[i])
		residuals[i] = fs.Y[i] - v
	}
	residStd := stdDev(residuals)

	const z = 1.96
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for i := range forecast {
		band := z * math.Sqrt(residStd*residStd+spreads[i]*spreads[i])
		lo := forecast[i] - band
		if lo < 0 {
			lo = 0
		}
		lower[i] = lo
		upper[i] = forecast[i] + band
	}

	weightByName := make(map[string]float64, len(learners))
	for i, l := range learners {
		weightByName[l.name] = weights[i]
	}
	return &models.ForecastResult{
		Forecast: forecast,
		Lower:    lower,
		Upper:    upper,
		Accuracy: residualAccuracy(fs.Y, residuals),
		ModelParameters: map[string]any{
			"weights":     weightByName,
			"holdout_mae": maes,
		},
	}, nil
}
