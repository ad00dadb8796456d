package models

import (
	"time"
)

// Algorithm identifies a forecasting algorithm.
type Algorithm string

const (
	AlgorithmAuto                 Algorithm = "auto"
	AlgorithmMovingAverage        Algorithm = "moving_average"
	AlgorithmExponentialSmoothing Algorithm = "exponential_smoothing"
	AlgorithmARIMA                Algorithm = "arima"
	AlgorithmRegression           Algorithm = "regression"
	AlgorithmEnsemble             Algorithm = "ensemble"
)

// Valid reports whether a is a recognized algorithm name.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmAuto, AlgorithmMovingAverage, AlgorithmExponentialSmoothing,
		AlgorithmARIMA, AlgorithmRegression, AlgorithmEnsemble:
		return true
	}
	return false
}

// ForecastStatus distinguishes a usable forecast from a structured failure.
type ForecastStatus string

const (
	ForecastOK     ForecastStatus = "ok"
	ForecastFailed ForecastStatus = "failed"
)

// ForecastRequest asks for a demand forecast over a horizon. All defaults are
// explicit in the schema; there is no hidden process state.
type ForecastRequest struct {
	ProductID       string             `json:"product_id"`
	ChannelID       string             `json:"channel_id"`
	HorizonDays     int                `json:"horizon_days"`
	Algorithm       Algorithm          `json:"algorithm"` // "auto" to let the engine pick
	ApplySeasonal   bool               `json:"apply_seasonal"`
	MarketCode      string             `json:"market_code,omitempty"`
	ExternalFactors map[string]float64 `json:"external_factors,omitempty"`
}

// AccuracyMetrics are in-sample fit metrics attached to a forecast.
type AccuracyMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// ForecastResult is the outcome of a single forecasting call.
//
// Invariants: len(Forecast) == len(Lower) == len(Upper) == horizon,
// Lower[i] <= Forecast[i] <= Upper[i], and every value is >= 0 (demand
// cannot be negative; bounds are clipped at zero).
type ForecastResult struct {
	Status          ForecastStatus  `json:"status"`
	Message         string          `json:"message,omitempty"`
	ProductID       string          `json:"product_id,omitempty"`
	ChannelID       string          `json:"channel_id,omitempty"`
	Algorithm       Algorithm       `json:"algorithm"`
	Forecast        []float64       `json:"forecast"`
	Lower           []float64       `json:"lower_bound"`
	Upper           []float64       `json:"upper_bound"`
	Accuracy        AccuracyMetrics `json:"accuracy_metrics"`
	ModelParameters map[string]any  `json:"model_parameters,omitempty"`
	SeasonalFactors []DailyFactor   `json:"seasonal_factors,omitempty"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// FailedForecast builds the structured failure result returned when every
// fallback in a chain has failed.
func FailedForecast(msg string) *ForecastResult {
	return &ForecastResult{
		Status:      ForecastFailed,
		Message:     msg,
		GeneratedAt: time.Now().UTC(),
	}
}
