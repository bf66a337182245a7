package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/replay-labeller/internal/models"
)

// buildProblem assembles a Problem from a row-major coefficient grid.
func buildProblem(objective []float64, coeffs [][]float64, rows []Row, forced []int) *Problem {
	b := NewMatrixBuilder()
	for r, row := range coeffs {
		for c, v := range row {
			if v != 0 {
				b.Append(r, c, v)
			}
		}
	}
	return &Problem{Objective: objective, Matrix: b, Rows: rows, ForcedOne: forced, MaxNodes: 1000}
}

func TestSimplexBackendSimpleChoice(t *testing.T) {
	// maximize 3x0 + 2x1 subject to x0 + x1 <= 1.
	p := buildProblem(
		[]float64{3, 2},
		[][]float64{{1, 1}},
		[]Row{{Sense: SenseLE, RHS: 1}},
		nil,
	)

	sol, err := NewSimplexBackend().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{1, 0}, sol.Values)
}

func TestSimplexBackendBranchesOnFractionalRelaxation(t *testing.T) {
	// maximize x0 + x1 + x2 subject to pairwise conflicts. The LP relaxation
	// sits at x = (0.5, 0.5, 0.5) with value 1.5; the binary optimum is 1.
	p := buildProblem(
		[]float64{1, 1, 1},
		[][]float64{
			{1, 1, 0},
			{0, 1, 1},
			{1, 0, 1},
		},
		[]Row{
			{Sense: SenseLE, RHS: 1},
			{Sense: SenseLE, RHS: 1},
			{Sense: SenseLE, RHS: 1},
		},
		nil,
	)

	sol, err := NewSimplexBackend().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.Objective, 1e-6)

	ones := 0
	for _, v := range sol.Values {
		require.True(t, v == 0 || v == 1, "backend must return exact binaries, got %v", v)
		if v == 1 {
			ones++
		}
	}
	assert.Equal(t, 1, ones)
}

func TestSimplexBackendForcedOne(t *testing.T) {
	p := buildProblem(
		[]float64{3, 2},
		[][]float64{{1, 1}},
		[]Row{{Sense: SenseLE, RHS: 1}},
		[]int{1},
	)

	sol, err := NewSimplexBackend().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{0, 1}, sol.Values)
}

func TestSimplexBackendInfeasible(t *testing.T) {
	// x0 + x1 = 2 contradicts x0 + x1 <= 1.
	p := buildProblem(
		[]float64{1, 1},
		[][]float64{
			{1, 1},
			{1, 1},
		},
		[]Row{
			{Sense: SenseEQ, RHS: 2},
			{Sense: SenseLE, RHS: 1},
		},
		nil,
	)

	_, err := NewSimplexBackend().Solve(context.Background(), p)
	require.ErrorIs(t, err, models.ErrSolverInfeasible)
}

func TestSimplexBackendNodeLimit(t *testing.T) {
	p := buildProblem(
		[]float64{1, 1, 1},
		[][]float64{
			{1, 1, 0},
			{0, 1, 1},
			{1, 0, 1},
		},
		[]Row{
			{Sense: SenseLE, RHS: 1},
			{Sense: SenseLE, RHS: 1},
			{Sense: SenseLE, RHS: 1},
		},
		nil,
	)
	p.MaxNodes = 1

	_, err := NewSimplexBackend().Solve(context.Background(), p)
	require.ErrorIs(t, err, models.ErrSolverNodeLimit)
}

func TestSimplexBackendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := buildProblem([]float64{1}, [][]float64{{1}}, []Row{{Sense: SenseLE, RHS: 1}}, nil)
	_, err := NewSimplexBackend().Solve(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimplexBackendEmptyProblem(t *testing.T) {
	sol, err := NewSimplexBackend().Solve(context.Background(), &Problem{})
	require.NoError(t, err)
	assert.Zero(t, sol.Objective)
	assert.Empty(t, sol.Values)
}

func TestMostFractional(t *testing.T) {
	assert.Equal(t, -1, mostFractional([]float64{0, 1, 1, 0}))
	assert.Equal(t, 1, mostFractional([]float64{0.9999999, 0.5, 0.1}))
	assert.Equal(t, 2, mostFractional([]float64{1, 0, 0.3}))
}
