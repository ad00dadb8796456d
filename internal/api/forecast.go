package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/middleware"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

// ForecastHandler serves demand forecasts. Requests without external factors
// are cached per (product, channel, horizon, algorithm); factor-adjusted
// forecasts vary per call and bypass the cache.
func (s *Server) ForecastHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/forecast"
	method := r.Method

	var req models.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Logger.Warn("invalid forecast request body", zap.Error(err))
		s.finish(endpoint, method, start, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.ChannelID == "" {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "product_id and channel_id are required", http.StatusBadRequest)
		return
	}
	if req.HorizonDays <= 0 || req.HorizonDays > s.Config.MaxHorizonDays {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "horizon_days out of range", http.StatusBadRequest)
		return
	}
	if req.Algorithm == "" {
		req.Algorithm = models.AlgorithmAuto
	}
	if req.MarketCode == "" {
		req.MarketCode = s.Config.DefaultMarketCode
	}

	cacheable := len(req.ExternalFactors) == 0
	if cacheable && s.Store != nil {
		cached, err := s.Store.GetForecast(r.Context(), req.ProductID, req.ChannelID, req.HorizonDays, req.Algorithm)
		if err != nil {
			s.Logger.Warn("forecast cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			s.Metrics.IncrementCacheLookups("hit")
			s.writeJSON(w, http.StatusOK, cached)
			s.finish(endpoint, method, start, "200")
			return
		}
		s.Metrics.IncrementCacheLookups("miss")
	}

	series, err := s.loadSeries(r, req.ProductID, req.ChannelID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	ctx, cancel := withTimeout(r, s.Config.ForecastTimeout)
	defer cancel()
	result, err := s.Engine.Forecast(ctx, series, req)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	if cacheable && s.Store != nil && result.Status == models.ForecastOK {
		if err := s.Store.SetForecast(r.Context(), result, req.HorizonDays, s.Config.ForecastCacheTTL); err != nil {
			s.Logger.Warn("forecast cache write failed", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, result)
	s.finish(endpoint, method, start, "200")

	if observability.ShouldSample(observability.GetSamplingRate()) {
		middleware.LoggerFromRequest(r, s.Logger).Info("forecast completed",
			zap.String("product_id", req.ProductID),
			zap.String("channel_id", req.ChannelID),
			zap.Int("horizon_days", req.HorizonDays),
			zap.String("algorithm", string(result.Algorithm)),
			zap.String("status", string(result.Status)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
