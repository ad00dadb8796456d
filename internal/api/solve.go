package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
)

// planTTL is how long a solved plan stays retrievable by ID.
const planTTL = 24 * time.Hour

// SolveHandler runs the multi-location allocation and persists the plan so
// callers can fetch it again by ID. Solves are the most expensive operation
// the service exposes, so clients are rate limited.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/optimize/multi-location"
	method := r.Method

	if !s.Limiter.Allow(clientID(r)) {
		s.finish(endpoint, method, start, "429")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req models.MultiLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finish(endpoint, method, start, "400")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := withTimeout(r, s.Config.SolverTimeout)
	defer cancel()
	plan, err := s.Solver.Solve(ctx, req)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}

	if s.Store != nil {
		if err := s.Store.SetPlan(r.Context(), plan, planTTL); err != nil {
			s.Logger.Warn("plan cache write failed", zap.String("plan_id", plan.PlanID), zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, plan)
	s.finish(endpoint, method, start, "200")
}

// GetPlanHandler returns a previously solved plan by ID.
func (s *Server) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/plans/{id}"
	method := r.Method

	planID := mux.Vars(r)["id"]
	if planID == "" || s.Store == nil {
		s.finish(endpoint, method, start, "404")
		http.Error(w, "plan not found", http.StatusNotFound)
		return
	}

	plan, err := s.Store.GetPlan(r.Context(), planID)
	if err != nil {
		s.writeError(w, endpoint, method, start, err)
		return
	}
	if plan == nil {
		s.finish(endpoint, method, start, "404")
		http.Error(w, "plan not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, plan)
	s.finish(endpoint, method, start, "200")
}
