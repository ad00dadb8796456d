package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/demandcast/demandcast/internal/models"
)

type backtestRequest struct {
	ProductID       string           `json:"product_id"`
	ChannelID       string           `json:"channel_id"`
	ModelType       models.Algorithm `json:"model_type"`
	ValidationDays  int              `json:"validation_days"`
	ForecastHorizon int              `json:"forecast_horizon"`
}

// BacktestHandler replays history for one model and reports its accuracy.
// Backtests refit the model at every step, so callers are rate limited.
func (s *Server) BacktestHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/validate/backtest"
	method := r.Method

	if !s.Limiter.Allow(clientID(r)) {
		s.finish(endpoint, method, start, "429")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.ChannelID == "" {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "product_id and channel_id are required", http.StatusBadRequest)
		return
	}
	if req.ModelType == "" {
		req.ModelType = models.AlgorithmAuto
	}
	if req.ForecastHorizon <= 0 {
		req.ForecastHorizon = 7
	}

	series, err := s.loadSeries(r, req.ProductID, req.ChannelID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	result, err := s.Validator.Backtest(r.Context(), series, req.ModelType, req.ValidationDays, req.ForecastHorizon)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
	s.finish(endpoint, method, start, "200")
}

type compareRequest struct {
	ProductID       string             `json:"product_id"`
	ChannelID       string             `json:"channel_id"`
	Candidates      []models.Algorithm `json:"candidates,omitempty"`
	ForecastHorizon int                `json:"forecast_horizon"`
}

// CompareHandler backtests several models on the same series and ranks them.
func (s *Server) CompareHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/validate/compare"
	method := r.Method

	if !s.Limiter.Allow(clientID(r)) {
		s.finish(endpoint, method, start, "429")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.ChannelID == "" {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "product_id and channel_id are required", http.StatusBadRequest)
		return
	}
	if req.ForecastHorizon <= 0 {
		req.ForecastHorizon = 7
	}

	series, err := s.loadSeries(r, req.ProductID, req.ChannelID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	comparison, err := s.Validator.CompareModels(r.Context(), series, req.Candidates, req.ForecastHorizon)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}
	s.writeJSON(w, http.StatusOK, comparison)
	s.finish(endpoint, method, start, "200")
}
