package solver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

const defaultIterations = 2000

// Solver runs multi-location allocation with one of three methods. When no
// method is requested it walks the ladder exact -> stochastic -> heuristic,
// degrading on infeasibility or an expired deadline.
type Solver struct {
	iterations     int
	balancedWeight float64
	metrics        observability.MetricsRegistry
	logger         *zap.Logger
}

func New(iterations int, balancedWeight float64, metrics observability.MetricsRegistry, logger *zap.Logger) *Solver {
	if iterations <= 0 {
		iterations = defaultIterations
	}
	if balancedWeight <= 0 || balancedWeight >= 1 {
		balancedWeight = 0.5
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Solver{
		iterations:     iterations,
		balancedWeight: balancedWeight,
		metrics:        metrics,
		logger:         logger.Named("solver"),
	}
}

// Solve validates the request and dispatches to the selected method. Only
// contract violations return an error; infeasible problems come back as a
// plan with status infeasible and diagnostics.
func (s *Solver) Solve(ctx context.Context, req models.MultiLocationRequest) (*models.MultiLocationPlan, error) {
	if err := req.Validate(); err != nil {
		s.metrics.IncrementSolves(string(req.Method), "invalid")
		return nil, err
	}
	objective := req.Objective
	if objective == "" {
		objective = models.ObjectiveMinimizeCost
	}

	p, err := buildProblem(req)
	if err != nil {
		s.metrics.IncrementSolves(string(req.Method), "invalid")
		return nil, err
	}

	plan := s.dispatch(ctx, p, req.Method, objective)
	s.metrics.IncrementSolves(string(plan.Method), string(plan.Status))
	s.logger.Info("solved multi-location plan",
		zap.String("plan_id", plan.PlanID),
		zap.String("method", string(plan.Method)),
		zap.String("status", string(plan.Status)),
		zap.Int("cells", len(plan.Allocations)),
		zap.Int("violations", len(plan.Violations)),
	)
	return plan, nil
}

func (s *Solver) dispatch(ctx context.Context, p *problem, method models.SolveMethod, objective models.Objective) *models.MultiLocationPlan {
	switch method {
	case models.MethodExact:
		return s.timed(models.MethodExact, func() *models.MultiLocationPlan { return s.solveExact(p, objective) })
	case models.MethodStochastic:
		return s.timed(models.MethodStochastic, func() *models.MultiLocationPlan { return s.solveStochastic(p, objective) })
	case models.MethodHeuristic:
		return s.timed(models.MethodHeuristic, func() *models.MultiLocationPlan { return s.solveHeuristic(p, objective) })
	}

	// Ladder: try exact, degrade to stochastic on infeasibility, finish on
	// the heuristic. An expired deadline jumps straight to the heuristic,
	// which is single-pass and cannot block.
	if ctx.Err() != nil {
		return s.timed(models.MethodHeuristic, func() *models.MultiLocationPlan { return s.solveHeuristic(p, objective) })
	}
	plan := s.timed(models.MethodExact, func() *models.MultiLocationPlan { return s.solveExact(p, objective) })
	if plan.Status != models.PlanInfeasible && plan.Status != models.PlanError {
		return plan
	}
	if ctx.Err() != nil {
		return s.timed(models.MethodHeuristic, func() *models.MultiLocationPlan { return s.solveHeuristic(p, objective) })
	}
	s.logger.Debug("exact solve infeasible, degrading", zap.String("next", string(models.MethodStochastic)))
	plan = s.timed(models.MethodStochastic, func() *models.MultiLocationPlan { return s.solveStochastic(p, objective) })
	if plan.Status == models.PlanFeasible {
		return plan
	}
	heuristic := s.timed(models.MethodHeuristic, func() *models.MultiLocationPlan { return s.solveHeuristic(p, objective) })
	if len(heuristic.Violations) < len(plan.Violations) {
		return heuristic
	}
	return plan
}

func (s *Solver) timed(method models.SolveMethod, fn func() *models.MultiLocationPlan) *models.MultiLocationPlan {
	start := time.Now()
	plan := fn()
	s.metrics.RecordSolveLatency(string(method), time.Since(start))
	return plan
}

func (s *Solver) newPlan(method models.SolveMethod, objective models.Objective) *models.MultiLocationPlan {
	return &models.MultiLocationPlan{
		PlanID:      uuid.NewString(),
		Method:      method,
		Objective:   objective,
		GeneratedAt: time.Now().UTC(),
	}
}
