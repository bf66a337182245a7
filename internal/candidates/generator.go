// Package candidates enumerates and ranks the structurally valid candidate
// labels for every bracket match across every setup.
package candidates

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/models"
	"github.com/yourusername/replay-labeller/internal/scoring"
)

// Result holds the surviving candidates grouped by match, ordered best
// first, plus per-setup diagnostics.
type Result struct {
	// Labels[mi] lists match mi's surviving candidates sorted descending by
	// log-likelihood.
	Labels [][]models.Label
	// SetupCounts[si] is the number of retained candidates whose window
	// comes from setup si.
	SetupCounts []int
}

// Generate scores every window of the right length and player count for
// every match, prunes candidates that can never beat the no-label payoff,
// and ranks the survivors. Each candidate's score depends only on its own
// match and window, so matches are scored in parallel.
func Generate(ctx context.Context, matches []*models.Match, setups []models.Setup, model *scoring.Model, logger *logrus.Logger) (*Result, error) {
	params := model.Params()
	labels := make([][]models.Label, len(matches))
	counts := make([][]int, len(matches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for mi, match := range matches {
		mi, match := mi, match
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			labels[mi], counts[mi] = generateForMatch(match, setups, model, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	setupCounts := make([]int, len(setups))
	total := 0
	for _, perMatch := range counts {
		for si, n := range perMatch {
			setupCounts[si] += n
			total += n
		}
	}

	for si, setup := range setups {
		logger.WithFields(logrus.Fields{
			"setup":      setup.ID,
			"games":      len(setup.Games),
			"candidates": setupCounts[si],
		}).Info("Setup candidate summary")
		metrics.RecordCandidatesRetained(setup.ID, setupCounts[si])
	}
	logger.WithFields(logrus.Fields{"matches": len(matches), "candidates": total}).
		Info("Candidate generation complete")

	return &Result{Labels: labels, SetupCounts: setupCounts}, nil
}

func generateForMatch(match *models.Match, setups []models.Setup, model *scoring.Model, params scoring.Params) ([]models.Label, []int) {
	nGames := match.GameCount()
	counts := make([]int, len(setups))
	var found []models.Label

	for si, setup := range setups {
		for ri := 0; ri+nGames <= len(setup.Games); ri++ {
			window := setup.Games[ri : ri+nGames]
			if !windowHasPlayerCount(window, params.RequiredPlayers) {
				continue
			}

			ll := model.Score(match, window)
			// Anything below the unlabelled payoff can never be chosen.
			if math.IsInf(ll, -1) || ll < params.NoLabelObjVal {
				continue
			}

			found = append(found, models.Label{LogLikelihood: ll, SetupIndex: si, GameIndex: ri})
			counts[si]++
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.LogLikelihood != b.LogLikelihood {
			return a.LogLikelihood > b.LogLikelihood
		}
		if a.SetupIndex != b.SetupIndex {
			return a.SetupIndex > b.SetupIndex
		}
		return a.GameIndex > b.GameIndex
	})

	return found, counts
}

func windowHasPlayerCount(window []models.Game, required int) bool {
	for i := range window {
		if window[i].PlayerCount != required {
			return false
		}
	}
	return true
}
