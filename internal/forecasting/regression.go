package forecasting

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/demandcast/demandcast/internal/models"
)

// Regression fits two linear-family candidates, plain least squares and a
// ridge-regularized variant, and keeps whichever scores lower on a held-out
// tail. The horizon is forecast recursively, feeding predictions back into
// the lag features.
type Regression struct{}

func (r *Regression) Name() models.Algorithm { return models.AlgorithmRegression }

const ridgeLambda = 1.0

func (r *Regression) FitPredict(ctx context.Context, series models.TimeSeries, horizon int) (*models.ForecastResult, error) {
	fs := buildFeatures(series)
	if fs == nil || len(fs.Y) < 2*featureCount() {
		return nil, fmt.Errorf("%w: regression needs at least %d usable samples", models.ErrInsufficientData, 2*featureCount())
	}

	// Held-out tail: roughly 20%, at least 14 days, never exceeding half
	// the sample.
	holdout := len(fs.Y) / 5
	if holdout < 14 {
		holdout = 14
	}
	if holdout > len(fs.Y)/2 {
		holdout = len(fs.Y) / 2
	}
	split := len(fs.Y) - holdout

	trainX, trainY := fs.X[:split], fs.Y[:split]
	testX, testY := fs.X[split:], fs.Y[split:]

	ols, err := fitLinear(trainX, trainY, 0)
	if err != nil {
		return nil, err
	}
	ridge, err := fitLinear(trainX, trainY, ridgeLambda)
	if err != nil {
		return nil, err
	}

	olsMAE := holdoutMAE(ols, testX, testY)
	ridgeMAE := holdoutMAE(ridge, testX, testY)

	variant := "ols"
	if ridgeMAE < olsMAE {
		variant = "ridge"
	}

	// Refit the winner on the full sample before forecasting.
	lambda := 0.0
	if variant == "ridge" {
		lambda = ridgeLambda
	}
	weights, err := fitLinear(fs.X, fs.Y, lambda)
	if err != nil {
		return nil, err
	}

	forecast := recursiveForecast(series, weights, horizon)

	residuals := make([]float64, len(fs.Y))
	for i := range fs.Y {
		residuals[i] = fs.Y[i] - predictRow(weights, fs.X[i])
	}
	std := stdDev(residuals)
	lower, upper := bandsFromStd(forecast, std)

	heldOutMAE := math.Min(olsMAE, ridgeMAE)
	return &models.ForecastResult{
		Forecast: forecast,
		Lower:    lower,
		Upper:    upper,
		Accuracy: residualAccuracy(fs.Y, residuals),
		ModelParameters: map[string]any{
			"variant":      variant,
			"holdout_mae":  heldOutMAE,
			"holdout_days": holdout,
			"features":     len(fs.Names),
		},
	}, nil
}

// fitLinear solves least squares with an intercept column; lambda > 0 adds
// ridge regularization via the normal equations.
func fitLinear(X [][]float64, y []float64, lambda float64) ([]float64, error) {
	n := len(X)
	p := len(X[0]) + 1 // intercept

	data := make([]float64, n*p)
	for i, row := range X {
		data[i*p] = 1
		copy(data[i*p+1:], row)
	}
	A := mat.NewDense(n, p, data)
	b := mat.NewVecDense(n, y)

	// (A'A + lambda I) w = A'b
	var ata mat.Dense
	ata.Mul(A.T(), A)
	if lambda > 0 {
		for i := 0; i < p; i++ {
			if i == 0 {
				continue // never shrink the intercept
			}
			ata.Set(i, i, ata.At(i, i)+lambda)
		}
	}
	var atb mat.VecDense
	atb.MulVec(A.T(), b)

	var w mat.VecDense
	if err := w.SolveVec(&ata, &atb); err != nil {
		return nil, fmt.Errorf("%w: linear solve: %v", models.ErrModelFit, err)
	}

	weights := make([]float64, p)
	for i := 0; i < p; i++ {
		weights[i] = w.AtVec(i)
	}
	return weights, nil
}

func predictRow(weights []float64, row []float64) float64 {
	v := weights[0]
	for i, x := range row {
		v += weights[i+1] * x
	}
	return v
}

func holdoutMAE(weights []float64, X [][]float64, y []float64) float64 {
	var absSum float64
	for i, row := range X {
		absSum += math.Abs(y[i] - predictRow(weights, row))
	}
	return absSum / float64(len(y))
}

// recursiveForecast extends the series one day at a time, building each
// day's feature row from history plus prior predictions.
func recursiveForecast(series models.TimeSeries, weights []float64, horizon int) []float64 {
	demands := series.Demands()
	extended := make([]float64, len(demands), len(demands)+horizon)
	copy(extended, demands)

	lastPrice := series[len(series)-1].UnitPrice
	start := series.LastDate().AddDate(0, 0, 1)

	forecast := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		date := start.AddDate(0, 0, h)
		row := featureRow(extended, date, lastPrice, len(extended))
		v := predictRow(weights, row)
		if v < 0 {
			v = 0
		}
		forecast[h] = v
		extended = append(extended, v)
	}
	return forecast
}
