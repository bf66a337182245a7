// Package probability converts raw candidate scores into calibrated
// per-match label probabilities via profile likelihood.
package probability

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/replay-labeller/internal/models"
	"github.com/yourusername/replay-labeller/internal/solver"
)

// Estimator ranks one match's candidate labels by the best global objective
// attainable when that label is pinned, everything else re-optimized around
// it.
type Estimator struct {
	solver *solver.AssignmentSolver
	logger *logrus.Logger
}

// NewEstimator creates an estimator over the given assignment solver.
func NewEstimator(s *solver.AssignmentSolver, logger *logrus.Logger) *Estimator {
	return &Estimator{solver: s, logger: logger}
}

// Options controls ranking output.
type Options struct {
	// IncludeNoLabel adds an explicit "no label" row to the ranking.
	IncludeNoLabel bool
	// Threshold drops ranked labels below this probability. Zero keeps
	// everything.
	Threshold float64
}

// RankMatch produces the probability ranking for match mi. Each candidate's
// profile likelihood comes from an independent constrained solve, so the
// solves run in parallel.
func (e *Estimator) RankMatch(ctx context.Context, matches []*models.Match, allLabels [][]models.Label, mi int, opts Options) ([]models.RankedLabel, error) {
	candidates := allLabels[mi]

	type option struct {
		label   *models.Label
		profile float64
	}
	options := make([]option, len(candidates), len(candidates)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range candidates {
		k := k
		g.Go(func() error {
			label := candidates[k]
			assignment, err := e.solver.Solve(gctx, matches, allLabels,
				solver.ForcedChoice{MatchIndex: mi, Label: &label})
			if err != nil {
				return err
			}
			options[k] = option{label: &label, profile: assignment.Objective}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.IncludeNoLabel {
		assignment, err := e.solver.Solve(ctx, matches, allLabels,
			solver.ForcedChoice{MatchIndex: mi, Label: nil})
		if err != nil {
			return nil, err
		}
		options = append(options, option{label: nil, profile: assignment.Objective})
	}

	if len(options) == 0 {
		return nil, nil
	}

	// Mean-shifted softmax keeps the exponentials in range regardless of
	// the absolute objective scale.
	mean := 0.0
	for _, o := range options {
		mean += o.profile
	}
	mean /= float64(len(options))

	totalMass := 0.0
	masses := make([]float64, len(options))
	for i, o := range options {
		masses[i] = math.Exp(o.profile - mean)
		totalMass += masses[i]
	}

	ranked := make([]models.RankedLabel, len(options))
	for i, o := range options {
		ranked[i] = models.RankedLabel{Probability: masses[i] / totalMass, Label: o.label}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	filtered := ranked[:0]
	for _, r := range ranked {
		if r.Probability >= opts.Threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// RankAll runs RankMatch for every match independently. No joint calibration
// across matches is attempted.
func (e *Estimator) RankAll(ctx context.Context, matches []*models.Match, allLabels [][]models.Label, opts Options) ([][]models.RankedLabel, error) {
	out := make([][]models.RankedLabel, len(matches))
	for mi := range matches {
		ranked, err := e.RankMatch(ctx, matches, allLabels, mi, opts)
		if err != nil {
			return nil, err
		}
		out[mi] = ranked
		e.logger.WithFields(logrus.Fields{
			"match":   matches[mi].Description(),
			"options": len(ranked),
		}).Debug("Ranked match labels")
	}
	return out, nil
}
