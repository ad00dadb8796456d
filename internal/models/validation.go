package models

import "time"

// MAPECategory is the human-readable accuracy bucket for a backtested model.
type MAPECategory string

const (
	MAPEExcellent  MAPECategory = "excellent"  // < 10%
	MAPEGood       MAPECategory = "good"       // < 20%
	MAPEReasonable MAPECategory = "reasonable" // < 50%
	MAPEPoor       MAPECategory = "poor"       // < 100%
	MAPEVeryPoor   MAPECategory = "very_poor"
)

// CategorizeMAPE buckets a fractional MAPE value for reporting.
func CategorizeMAPE(mape float64) MAPECategory {
	switch {
	case mape < 0.10:
		return MAPEExcellent
	case mape < 0.20:
		return MAPEGood
	case mape < 0.50:
		return MAPEReasonable
	case mape < 1.00:
		return MAPEPoor
	default:
		return MAPEVeryPoor
	}
}

// ValidationResult is the outcome of a rolling backtest. It is immutable once
// computed and used only for model ranking, never as forecast output.
type ValidationResult struct {
	ModelType            Algorithm    `json:"model_type"`
	MAE                  float64      `json:"mae"`
	MSE                  float64      `json:"mse"`
	RMSE                 float64      `json:"rmse"`
	MAPE                 float64      `json:"mape"` // fractional, e.g. 0.08 for 8%
	Bias                 float64      `json:"bias"` // mean signed error
	AccuracyScore        float64      `json:"accuracy_score"` // 1 - MAPE, floored at 0
	IntervalCoverage     float64      `json:"interval_coverage"`
	TrendAccuracy        float64      `json:"trend_accuracy"`
	MAPECategory         MAPECategory `json:"mape_category"`
	ValidationPeriodDays int          `json:"validation_period_days"`
	TotalPredictions     int          `json:"total_predictions"`
}

// ModelRanking is one entry of a model comparison, lower composite score is better.
type ModelRanking struct {
	ModelType      Algorithm        `json:"model_type"`
	CompositeScore float64          `json:"composite_score"`
	Result         ValidationResult `json:"result"`
}

// ModelComparison ranks all successfully backtested candidates.
type ModelComparison struct {
	Ranking        []ModelRanking `json:"ranking"`
	BestModel      Algorithm      `json:"best_model"`
	Recommendation string         `json:"recommendation"`
}

// AccuracyRecord is one live forecast with its since-filled-in actual.
type AccuracyRecord struct {
	Date      time.Time `json:"date"`
	ModelType Algorithm `json:"model_type"`
	Forecast  float64   `json:"forecast"`
	Actual    float64   `json:"actual"`
}

// AccuracyTrend classifies how live accuracy is moving over time.
type AccuracyTrend string

const (
	TrendImproving AccuracyTrend = "improving"
	TrendFlat      AccuracyTrend = "stable"
	TrendDeclining AccuracyTrend = "declining"
)

// AccuracySummary is the live-tracking report over a rolling window.
type AccuracySummary struct {
	AverageAccuracy float64                   `json:"average_accuracy"`
	Trend           AccuracyTrend             `json:"trend"`
	TrendSlope      float64                   `json:"trend_slope"`
	ByModel         map[Algorithm]float64     `json:"by_model"`
	Records         int                       `json:"records"`
}
