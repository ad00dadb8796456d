package api

import (
	"encoding/json"
	"net/http"
	"time"
)

type seasonalRequest struct {
	ProductID  string `json:"product_id"`
	ChannelID  string `json:"channel_id"`
	MarketCode string `json:"market_code,omitempty"`
}

// SeasonalHandler detects weekly, monthly, holiday and yearly patterns in a
// pair's sales history. Thin history yields a neutral low-confidence profile,
// not an error.
func (s *Server) SeasonalHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/seasonal/detect"
	method := r.Method

	var req seasonalRequest
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
	if req.MarketCode == "" {
		req.MarketCode = s.Config.DefaultMarketCode
	}

	series, err := s.loadSeries(r, req.ProductID, req.ChannelID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	profile := s.Detector.Detect(series, req.MarketCode)
	s.writeJSON(w, http.StatusOK, profile)
	s.finish(endpoint, method, start, "200")
}
