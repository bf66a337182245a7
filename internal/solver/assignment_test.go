package solver

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/replay-labeller/internal/models"
)

const noLabelVal = -25.0

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestSolver() *AssignmentSolver {
	return NewAssignmentSolver(NewSimplexBackend(), noLabelVal, 10000, time.Minute, testLogger())
}

func match2_0(id int64) *models.Match {
	return &models.Match{ID: id, Player1Name: "A", Player2Name: "B", Player1Score: 2, ScoresCSV: "2-0"}
}

func TestSolveDistinctWindows(t *testing.T) {
	matches := []*models.Match{match2_0(1), match2_0(2)}
	allLabels := [][]models.Label{
		{{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}},
		{{LogLikelihood: -4, SetupIndex: 0, GameIndex: 2}},
	}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)

	require.NotNil(t, assignment.Labels[0])
	require.NotNil(t, assignment.Labels[1])
	assert.Equal(t, 0, assignment.Labels[0].GameIndex)
	assert.Equal(t, 2, assignment.Labels[1].GameIndex)
	assert.InDelta(t, -7.0, assignment.Objective, 1e-6)
}

func TestSolveOverlapExclusivity(t *testing.T) {
	// Both matches want the same two games; only the better claim wins, the
	// other match goes unlabelled.
	matches := []*models.Match{match2_0(1), match2_0(2)}
	shared := models.Label{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}
	other := shared
	other.LogLikelihood = -5
	allLabels := [][]models.Label{{shared}, {other}}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)

	require.NotNil(t, assignment.Labels[0])
	assert.Nil(t, assignment.Labels[1])
	assert.InDelta(t, -3.0+noLabelVal, assignment.Objective, 1e-6)
}

func TestSolvePartialOverlapExclusivity(t *testing.T) {
	// Windows [0,1] and [1,2] share game 1 and cannot both be chosen.
	matches := []*models.Match{match2_0(1), match2_0(2)}
	allLabels := [][]models.Label{
		{{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}},
		{{LogLikelihood: -4, SetupIndex: 0, GameIndex: 1}},
	}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)

	chosen := assignment.LabelledCount()
	assert.Equal(t, 1, chosen, "overlapping windows must not both be selected")
	require.NotNil(t, assignment.Labels[0], "the better claim wins the shared game")
}

func TestSolveNoCandidates(t *testing.T) {
	// Every match unlabelled is a valid, and here the only, solution.
	matches := []*models.Match{match2_0(1), match2_0(2)}
	allLabels := [][]models.Label{nil, nil}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)
	assert.Zero(t, assignment.LabelledCount())
	assert.InDelta(t, 2*noLabelVal, assignment.Objective, 1e-6)
}

func TestSolvePrefersLabelOverNoLabel(t *testing.T) {
	// A weak but above-threshold candidate still beats the no-label payoff.
	matches := []*models.Match{match2_0(1)}
	allLabels := [][]models.Label{
		{{LogLikelihood: -20, SetupIndex: 0, GameIndex: 0}},
	}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)
	require.NotNil(t, assignment.Labels[0])
	assert.InDelta(t, -20.0, assignment.Objective, 1e-6)
}

func TestSolveForcedUnlabelledBoundsOptimum(t *testing.T) {
	matches := []*models.Match{match2_0(1), match2_0(2)}
	allLabels := [][]models.Label{
		{{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}},
		{{LogLikelihood: -4, SetupIndex: 0, GameIndex: 2}},
	}

	s := newTestSolver()
	free, err := s.Solve(context.Background(), matches, allLabels)
	require.NoError(t, err)

	forced, err := s.Solve(context.Background(), matches, allLabels,
		ForcedChoice{MatchIndex: 0, Label: nil})
	require.NoError(t, err)

	assert.Nil(t, forced.Labels[0])
	assert.LessOrEqual(t, forced.Objective, free.Objective,
		"a constrained solve can never beat the unconstrained optimum")
	assert.InDelta(t, noLabelVal-4.0, forced.Objective, 1e-6)
}

func TestSolveForcedCandidate(t *testing.T) {
	// Forcing the weaker of two candidates for the same match.
	matches := []*models.Match{match2_0(1)}
	weak := models.Label{LogLikelihood: -10, SetupIndex: 1, GameIndex: 4}
	allLabels := [][]models.Label{
		{{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}, weak},
	}

	assignment, err := newTestSolver().Solve(context.Background(), matches, allLabels,
		ForcedChoice{MatchIndex: 0, Label: &weak})
	require.NoError(t, err)

	require.NotNil(t, assignment.Labels[0])
	assert.Equal(t, 1, assignment.Labels[0].SetupIndex)
	assert.Equal(t, 4, assignment.Labels[0].GameIndex)
	assert.InDelta(t, -10.0, assignment.Objective, 1e-6)
}

func TestSolveForcedUnknownCandidate(t *testing.T) {
	matches := []*models.Match{match2_0(1)}
	allLabels := [][]models.Label{
		{{LogLikelihood: -3, SetupIndex: 0, GameIndex: 0}},
	}

	ghost := models.Label{SetupIndex: 9, GameIndex: 9}
	_, err := newTestSolver().Solve(context.Background(), matches, allLabels,
		ForcedChoice{MatchIndex: 0, Label: &ghost})
	require.Error(t, err, "forcing a pruned candidate must fail loudly")
}

func TestSolveMismatchedInput(t *testing.T) {
	matches := []*models.Match{match2_0(1)}
	_, err := newTestSolver().Solve(context.Background(), matches, nil)
	require.Error(t, err)
}
