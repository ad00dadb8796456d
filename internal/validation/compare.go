package validation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
)

// defaultCandidates are the models compared when the caller does not name any.
var defaultCandidates = []models.Algorithm{
	models.AlgorithmMovingAverage,
	models.AlgorithmExponentialSmoothing,
	models.AlgorithmARIMA,
	models.AlgorithmRegression,
	models.AlgorithmEnsemble,
}

// CompareModels backtests each candidate on the series and ranks them by
// composite score. Candidates that fail to backtest are dropped from the
// ranking rather than failing the comparison.
func (v *Validator) CompareModels(ctx context.Context, series models.TimeSeries, candidates []models.Algorithm, horizon int) (*models.ModelComparison, error) {
	if len(candidates) == 0 {
		candidates = defaultCandidates
	}
	if horizon <= 0 {
		horizon = 7
	}

	var ranking []models.ModelRanking
	for _, modelType := range candidates {
		result, err := v.Backtest(ctx, series, modelType, 0, horizon)
		if err != nil {
			v.logger.Debug("candidate dropped from comparison",
				zap.String("model", string(modelType)),
				zap.Error(err))
			continue
		}
		ranking = append(ranking, models.ModelRanking{
			ModelType:      modelType,
			CompositeScore: compositeScore(result),
			Result:         *result,
		})
	}
	if len(ranking) == 0 {
		return nil, fmt.Errorf("%w: no candidate model could be backtested", models.ErrModelFit)
	}

	sort.Slice(ranking, func(i, j int) bool {
		return ranking[i].CompositeScore < ranking[j].CompositeScore
	})

	comparison := &models.ModelComparison{
		Ranking:   ranking,
		BestModel: ranking[0].ModelType,
	}
	if len(ranking) > 1 {
		comparison.Recommendation = fmt.Sprintf(
			"use %s (%s accuracy); consider an ensemble of %s and %s if accuracy degrades",
			ranking[0].ModelType, ranking[0].Result.MAPECategory,
			ranking[0].ModelType, ranking[1].ModelType)
	} else {
		comparison.Recommendation = fmt.Sprintf("use %s (%s accuracy)",
			ranking[0].ModelType, ranking[0].Result.MAPECategory)
	}
	return comparison, nil
}

// compositeScore blends the error metrics into a single rankable number;
// lower is better.
func compositeScore(r *models.ValidationResult) float64 {
	return 0.4*r.MAPE + 0.3*(r.RMSE/100) + 0.2*math.Abs(r.Bias) + 0.1*(1-r.AccuracyScore)
}
