package weights

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/logger"
)

func newConstraintService() *Service {
	cfg := config.Default()
	return NewService(cfg, nil, logger.Nop())
}

func assertValidMapping(t *testing.T, mapping domain.WeightMapping, maxWeight float64) {
	t.Helper()
	assert.InDelta(t, 1.0, mapping.Sum(), 1e-6)
	for sym, w := range mapping {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s", sym)
		assert.LessOrEqual(t, w, maxWeight+1e-6, "weight for %s", sym)
	}
}

func TestApplyConstraints_NoBindingConstraints(t *testing.T) {
	raw := domain.WeightMapping{"A": 0.5, "B": 0.3, "C": 0.2}

	result, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result["A"], 1e-9)
	assertValidMapping(t, result, 1.0)
}

func TestApplyConstraints_MinWeightFilterAndRenormalize(t *testing.T) {
	raw := domain.WeightMapping{"A": 0.55, "B": 0.42, "C": 0.03}

	result, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{MinWeight: 0.05})
	require.NoError(t, err)

	assert.NotContains(t, result, "C")
	assert.InDelta(t, 0.55/0.97, result["A"], 1e-9)
	assert.InDelta(t, 0.42/0.97, result["B"], 1e-9)
	assertValidMapping(t, result, 1.0)
}

func TestApplyConstraints_CapRedistribution(t *testing.T) {
	raw := domain.WeightMapping{"A": 0.70, "B": 0.20, "C": 0.10}

	result, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{MaxWeight: 0.50})
	require.NoError(t, err)

	assert.InDelta(t, 0.50, result["A"], 1e-9)
	// Excess 0.20 is split proportionally between B and C (2:1).
	assert.InDelta(t, 0.20+0.20*2.0/3.0, result["B"], 1e-9)
	assert.InDelta(t, 0.10+0.20*1.0/3.0, result["C"], 1e-9)
	assertValidMapping(t, result, 0.50)
}

func TestApplyConstraints_RelaxationScenario(t *testing.T) {
	// Raw weights (0.60, 0.35, 0.03, 0.02) with min 0.05 / max 0.40:
	// filtering keeps 2 assets but 2*0.40 < 1, so min_weight is relaxed
	// to re-admit the largest excluded asset. The result must never
	// silently violate max_weight.
	raw := domain.WeightMapping{"A": 0.60, "B": 0.35, "C": 0.03, "D": 0.02}
	constraints := domain.Constraints{MinWeight: 0.05, MaxWeight: 0.40}

	result, err := newConstraintService().ApplyConstraints(raw, constraints)
	require.NoError(t, err)

	require.Len(t, result, 3)
	assert.NotContains(t, result, "D")
	assert.InDelta(t, 0.40, result["A"], 1e-9)
	assert.InDelta(t, 0.40, result["B"], 1e-9)
	assert.InDelta(t, 0.20, result["C"], 1e-6)
	assertValidMapping(t, result, 0.40)
}

func TestApplyConstraints_Infeasible(t *testing.T) {
	raw := domain.WeightMapping{"A": 0.6, "B": 0.4}

	_, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{MaxWeight: 0.40})

	var infeasibleErr *domain.InfeasibleConstraintError
	require.True(t, errors.As(err, &infeasibleErr))
	assert.Equal(t, 2, infeasibleErr.Assets)
}

func TestApplyConstraints_AllBelowMinWeight(t *testing.T) {
	// Every asset falls below min_weight; relaxation re-admits enough of
	// them (largest first) to satisfy the cap.
	raw := domain.WeightMapping{"A": 0.30, "B": 0.25, "C": 0.25, "D": 0.20}

	result, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{
		MinWeight: 0.50,
		MaxWeight: 0.50,
	})
	require.NoError(t, err)

	assertValidMapping(t, result, 0.50)
	assert.GreaterOrEqual(t, len(result), 2)
}

func TestApplyConstraints_ExactCapBoundary(t *testing.T) {
	// 4 assets at max_weight 0.25 exactly: the only feasible solution is
	// equal weights.
	raw := domain.WeightMapping{"A": 0.40, "B": 0.30, "C": 0.20, "D": 0.10}

	result, err := newConstraintService().ApplyConstraints(raw, domain.Constraints{MaxWeight: 0.25})
	require.NoError(t, err)

	for sym, w := range result {
		assert.InDelta(t, 0.25, w, 1e-6, "weight for %s", sym)
	}
}

func TestApplyConstraints_EmptyInput(t *testing.T) {
	_, err := newConstraintService().ApplyConstraints(domain.WeightMapping{}, domain.Constraints{})
	assert.Error(t, err)
}

func TestApplyConstraints_Idempotent(t *testing.T) {
	raw := domain.WeightMapping{"A": 0.60, "B": 0.35, "C": 0.03, "D": 0.02}
	constraints := domain.Constraints{MinWeight: 0.05, MaxWeight: 0.40}
	svc := newConstraintService()

	first, err := svc.ApplyConstraints(raw, constraints)
	require.NoError(t, err)
	second, err := svc.ApplyConstraints(raw, constraints)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for sym, w := range first {
		assert.True(t, math.Abs(second[sym]-w) < 1e-12)
	}
}
