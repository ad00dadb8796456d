package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

func newTestSolver() *Solver {
	return New(50, 0.5, &observability.NoOpRegistry{}, zap.NewNop())
}

func twoByTwoRequest() models.MultiLocationRequest {
	return models.MultiLocationRequest{
		Products: []models.ProductSpec{
			{ProductID: "p1", UnitCost: 10, DailyDemand: 20, DemandStdDev: 4, LeadTimeDays: 7, UnitVolume: 1, PriorityWeight: 2},
			{ProductID: "p2", UnitCost: 5, DailyDemand: 10, DemandStdDev: 2, LeadTimeDays: 5, UnitVolume: 0.5},
		},
		Locations: []models.LocationSpec{
			{LocationID: "east", StorageCapacity: 100000, DemandShare: map[string]float64{"p1": 0.6, "p2": 0.5}},
			{LocationID: "west", StorageCapacity: 100000, DemandShare: map[string]float64{"p1": 0.4, "p2": 0.5}},
		},
		Constraints: models.MultiLocationConstraints{
			MinServiceLevel: models.ServiceLevelStandard,
			HoldingCostRate: 0.25,
			OrderingCost:    50,
		},
		Objective: models.ObjectiveMinimizeCost,
	}
}

func TestSolveValidatesRequest(t *testing.T) {
	s := newTestSolver()
	_, err := s.Solve(context.Background(), models.MultiLocationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	req := twoByTwoRequest()
	req.Constraints.MinServiceLevel = 0.90
	_, err = s.Solve(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestPlanShapeParityAcrossMethods(t *testing.T) {
	s := newTestSolver()
	var keySets []map[string]bool
	for _, method := range []models.SolveMethod{models.MethodExact, models.MethodStochastic, models.MethodHeuristic} {
		req := twoByTwoRequest()
		req.Method = method
		plan, err := s.Solve(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, method, plan.Method)
		require.NotEmpty(t, plan.PlanID)
		require.NotEmpty(t, plan.ObjectiveNote)

		keys := map[string]bool{}
		for k := range plan.Allocations {
			keys[k] = true
		}
		keySets = append(keySets, keys)
	}
	require.Len(t, keySets, 3)
	assert.Equal(t, keySets[0], keySets[1])
	assert.Equal(t, keySets[1], keySets[2])
	assert.True(t, keySets[0][models.PlanKey("p1", "east")])
	assert.True(t, keySets[0][models.PlanKey("p2", "west")])
}

func TestHeuristicFeasibleWithoutLimits(t *testing.T) {
	s := newTestSolver()
	req := twoByTwoRequest()
	req.Method = models.MethodHeuristic
	plan, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.PlanFeasible, plan.Status)
	assert.Empty(t, plan.Violations)
	for key, a := range plan.Allocations {
		assert.GreaterOrEqual(t, a.Stock, a.ReorderPoint, "stock must cover the reorder point for %s", key)
		assert.GreaterOrEqual(t, a.Order, 0.0)
	}
	assert.Greater(t, plan.ObjectiveValue, 0.0)
}

func TestHeuristicRecordsViolationsUnderTightCapital(t *testing.T) {
	s := newTestSolver()
	req := twoByTwoRequest()
	req.Method = models.MethodHeuristic
	req.Constraints.WorkingCapitalLimit = 100 // far below what full coverage needs
	plan, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.PlanConstrained, plan.Status)
	require.NotEmpty(t, plan.Violations)

	var value float64
	for key, a := range plan.Allocations {
		unitCost := 10.0
		if key[:2] == "p2" {
			unitCost = 5.0
		}
		value += a.Stock * unitCost
	}
	assert.LessOrEqual(t, value, req.Constraints.WorkingCapitalLimit+1, "clipping must respect the capital budget")
}

func TestHeuristicPriorityClaimsBudgetFirst(t *testing.T) {
	s := newTestSolver()
	req := twoByTwoRequest()
	req.Method = models.MethodHeuristic
	// Enough capital for the priority product's coverage but not both.
	req.Constraints.WorkingCapitalLimit = 6000
	plan, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	p1East := plan.Allocations[models.PlanKey("p1", "east")]
	p2West := plan.Allocations[models.PlanKey("p2", "west")]
	assert.Greater(t, p1East.Stock, 0.0, "priority product should be allocated")
	assert.GreaterOrEqual(t, p1East.Stock, p1East.ReorderPoint)
	_ = p2West // low priority may be clipped to zero; only shape is guaranteed
}

func TestStochasticPlansAreReproducible(t *testing.T) {
	s := newTestSolver()
	req := twoByTwoRequest()
	req.Method = models.MethodStochastic

	first, err := s.Solve(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Allocations, second.Allocations)
	assert.InDelta(t, first.ObjectiveValue, second.ObjectiveValue, 1e-9)
}

func TestLadderFallsBackToHeuristicOnExpiredDeadline(t *testing.T) {
	s := newTestSolver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := twoByTwoRequest()
	req.Method = "" // ladder
	plan, err := s.Solve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.MethodHeuristic, plan.Method)
}

func TestLadderReturnsSomePlanUnderTightConstraints(t *testing.T) {
	s := newTestSolver()
	req := twoByTwoRequest()
	req.Method = ""
	req.Constraints.WorkingCapitalLimit = 50
	req.Locations[0].StorageCapacity = 10
	req.Locations[1].StorageCapacity = 10

	plan, err := s.Solve(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotEqual(t, models.PlanError, plan.Status)
	assert.Len(t, plan.Allocations, 4)
}

func TestObjectiveSwitchesCostAndService(t *testing.T) {
	s := newTestSolver()

	costReq := twoByTwoRequest()
	costReq.Method = models.MethodHeuristic
	costPlan, err := s.Solve(context.Background(), costReq)
	require.NoError(t, err)

	serviceReq := twoByTwoRequest()
	serviceReq.Method = models.MethodHeuristic
	serviceReq.Objective = models.ObjectiveMaximizeService
	servicePlan, err := s.Solve(context.Background(), serviceReq)
	require.NoError(t, err)

	assert.Greater(t, costPlan.ObjectiveValue, 0.0, "cost objective is a positive annual cost")
	assert.LessOrEqual(t, servicePlan.ObjectiveValue, 0.0, "service objective is negated coverage")
}
