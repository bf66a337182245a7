package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/models"
)

// ForcedChoice pins one match's disposition before solving: either a
// specific candidate label, or unlabelled when Label is nil.
type ForcedChoice struct {
	MatchIndex int
	Label      *models.Label
}

// AssignmentSolver turns per-match candidate lists into one globally optimal
// labelling: at most one label per match, at most one claiming match per
// physical game.
type AssignmentSolver struct {
	backend    Backend
	noLabelVal float64
	maxNodes   int
	timeLimit  time.Duration
	logger     *logrus.Logger
}

// NewAssignmentSolver creates a solver over the given backend. noLabelVal is
// the objective payoff of leaving a match unlabelled.
func NewAssignmentSolver(backend Backend, noLabelVal float64, maxNodes int, timeLimit time.Duration, logger *logrus.Logger) *AssignmentSolver {
	return &AssignmentSolver{
		backend:    backend,
		noLabelVal: noLabelVal,
		maxNodes:   maxNodes,
		timeLimit:  timeLimit,
		logger:     logger,
	}
}

// gameKey identifies a physical game by setup and position.
type gameKey struct {
	setup int
	game  int
}

// Solve builds and solves the assignment program over the given candidate
// lists. allLabels[mi] is match mi's surviving candidates; forced pins
// variables to 1 for marginal analysis.
func (s *AssignmentSolver) Solve(ctx context.Context, matches []*models.Match, allLabels [][]models.Label, forced ...ForcedChoice) (*models.Assignment, error) {
	if len(matches) != len(allLabels) {
		return nil, fmt.Errorf("got %d matches but %d candidate lists", len(matches), len(allLabels))
	}

	p, layout, err := s.formulate(matches, allLabels, forced)
	if err != nil {
		return nil, err
	}

	if s.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeLimit)
		defer cancel()
	}

	started := time.Now()
	sol, err := s.backend.Solve(ctx, p)
	metrics.ObserveSolveDuration(time.Since(started).Seconds())
	if err != nil {
		metrics.RecordSolverRun(solveStatus(err))
		if errors.Is(err, models.ErrSolverInfeasible) {
			// Leaving every match unlabelled is always feasible, so an
			// infeasible program means the constraints were built wrong.
			return nil, fmt.Errorf("assignment program reported infeasible; the all-unlabelled assignment is feasible by construction, so the formulation is defective (vars=%d rows=%d forced=%d): %w",
				len(p.Objective), len(p.Rows), len(p.ForcedOne), err)
		}
		return nil, fmt.Errorf("assignment solve failed: %w", err)
	}
	metrics.RecordSolverRun("success")

	return s.extract(sol, matches, allLabels, layout)
}

// layout records where each variable lives in the flat variable vector:
// candidate variables in candidate-list order, then one unlabelled variable
// per match.
type layout struct {
	// varOf[mi][k] is the variable index of match mi's k-th candidate.
	varOf [][]int
	// unlabelledOf[mi] is the index of match mi's unlabelled variable.
	unlabelledOf []int
}

func (s *AssignmentSolver) formulate(matches []*models.Match, allLabels [][]models.Label, forced []ForcedChoice) (*Problem, *layout, error) {
	nMatches := len(matches)

	lay := &layout{
		varOf:        make([][]int, nMatches),
		unlabelledOf: make([]int, nMatches),
	}
	var objective []float64
	for mi, labels := range allLabels {
		lay.varOf[mi] = make([]int, len(labels))
		for k, label := range labels {
			lay.varOf[mi][k] = len(objective)
			objective = append(objective, label.LogLikelihood)
		}
	}
	for mi := 0; mi < nMatches; mi++ {
		lay.unlabelledOf[mi] = len(objective)
		objective = append(objective, s.noLabelVal)
	}

	// Collect every physical game covered by at least one candidate window.
	coveredBy := map[gameKey][]int{}
	for mi, labels := range allLabels {
		nGames := matches[mi].GameCount()
		for k, label := range labels {
			for g := 0; g < nGames; g++ {
				key := gameKey{setup: label.SetupIndex, game: label.GameIndex + g}
				coveredBy[key] = append(coveredBy[key], lay.varOf[mi][k])
			}
		}
	}

	build := NewMatrixBuilder()
	var rows []Row

	// Each match has exactly one disposition.
	for mi := 0; mi < nMatches; mi++ {
		r := len(rows)
		build.Append(r, lay.unlabelledOf[mi], 1)
		for _, j := range lay.varOf[mi] {
			build.Append(r, j, 1)
		}
		rows = append(rows, Row{Sense: SenseEQ, RHS: 1})
	}

	// Each covered physical game is claimed at most once. Keys are sorted so
	// a given input always produces the same program.
	keys := make([]gameKey, 0, len(coveredBy))
	for key := range coveredBy {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].setup != keys[j].setup {
			return keys[i].setup < keys[j].setup
		}
		return keys[i].game < keys[j].game
	})
	for _, key := range keys {
		r := len(rows)
		for _, j := range coveredBy[key] {
			build.Append(r, j, 1)
		}
		rows = append(rows, Row{Sense: SenseLE, RHS: 1})
	}

	forcedOne, err := s.resolveForced(forced, allLabels, lay)
	if err != nil {
		return nil, nil, err
	}

	return &Problem{
		Objective: objective,
		Matrix:    build,
		Rows:      rows,
		ForcedOne: forcedOne,
		MaxNodes:  s.maxNodes,
	}, lay, nil
}

func (s *AssignmentSolver) resolveForced(forced []ForcedChoice, allLabels [][]models.Label, lay *layout) ([]int, error) {
	seen := map[int]struct{}{}
	var out []int
	for _, f := range forced {
		if f.MatchIndex < 0 || f.MatchIndex >= len(allLabels) {
			return nil, fmt.Errorf("forced choice references match %d of %d", f.MatchIndex, len(allLabels))
		}
		j := -1
		if f.Label == nil {
			j = lay.unlabelledOf[f.MatchIndex]
		} else {
			for k, label := range allLabels[f.MatchIndex] {
				if label.SetupIndex == f.Label.SetupIndex && label.GameIndex == f.Label.GameIndex {
					j = lay.varOf[f.MatchIndex][k]
					break
				}
			}
			if j < 0 {
				return nil, fmt.Errorf("forced label (setup %d, game %d) is not a surviving candidate of match %d",
					f.Label.SetupIndex, f.Label.GameIndex, f.MatchIndex)
			}
		}
		if _, dup := seen[j]; !dup {
			seen[j] = struct{}{}
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *AssignmentSolver) extract(sol *Solution, matches []*models.Match, allLabels [][]models.Label, lay *layout) (*models.Assignment, error) {
	for j, v := range sol.Values {
		if v != 0 && v != 1 {
			// The backend contract requires exact binary values.
			return nil, fmt.Errorf("%w: variable %d = %v", models.ErrNonBinarySolution, j, v)
		}
	}

	chosen := make([]*models.Label, len(matches))
	for mi, labels := range allLabels {
		for k := range labels {
			if sol.Values[lay.varOf[mi][k]] == 1 {
				label := labels[k]
				chosen[mi] = &label
			}
		}
	}

	assignment := &models.Assignment{Objective: sol.Objective, Labels: chosen}
	s.logger.WithFields(logrus.Fields{
		"objective": fmt.Sprintf("%.2f", assignment.Objective),
		"labelled":  assignment.LabelledCount(),
		"matches":   len(matches),
	}).Info("Assignment solved")
	return assignment, nil
}

func solveStatus(err error) string {
	switch {
	case errors.Is(err, models.ErrSolverNodeLimit), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case err != nil:
		return "failure"
	default:
		return "success"
	}
}
