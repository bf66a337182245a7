// Package scoring implements the likelihood model that scores how plausible
// it is that a contiguous window of recorded games is the recording of a
// bracket match.
package scoring

import (
	"fmt"

	"github.com/yourusername/replay-labeller/internal/config"
)

// Params holds the tunable constants of the likelihood model. Values are
// fixed at construction; the model never mutates them.
type Params struct {
	// Gaussian over (first game start − match start), seconds.
	AnnounceToStartMean float64
	AnnounceToStartSD   float64
	// Gaussian over (match completion − last game end), seconds.
	EndToReportMean float64
	EndToReportSD   float64

	// Games may start before the match is recorded to begin, or end before
	// it is recorded to finish, by at most this many seconds.
	TimeSlack float64

	// Floors on the per-coordinate timing log-likelihoods, bounding how much
	// a single extreme-tail timing value can penalize an otherwise-good
	// candidate.
	MinStartLL float64
	MinEndLL   float64

	// RequiredPlayers is the occupied-port count every game in a window must
	// report: 2 for singles, 4 for doubles.
	RequiredPlayers int

	// DefaultCharProb estimates how likely an unknown player is to have
	// picked any particular character, derived from tournament-wide
	// character distribution data.
	DefaultCharProb float64
	MainCharProb    float64
	SecCharProb     float64

	// NoLabelObjVal is the payoff of leaving a match unlabelled. It doubles
	// as the pruning threshold: a candidate scoring below it can never be
	// chosen over the unlabelled option.
	NoLabelObjVal float64
}

// FromConfig builds model parameters from the application configuration.
func FromConfig(cfg *config.ScoringConfig) (Params, error) {
	if cfg.AnnounceToStartSD <= 0 || cfg.EndToReportSD <= 0 {
		return Params{}, fmt.Errorf("timing standard deviations must be positive")
	}
	if cfg.MainCharProb+cfg.SecCharProb >= 1 {
		return Params{}, fmt.Errorf("main and secondary character masses must sum below 1")
	}
	return Params{
		AnnounceToStartMean: cfg.AnnounceToStartMean,
		AnnounceToStartSD:   cfg.AnnounceToStartSD,
		EndToReportMean:     cfg.EndToReportMean,
		EndToReportSD:       cfg.EndToReportSD,
		TimeSlack:           cfg.TimeSlackSeconds,
		MinStartLL:          cfg.MinStartLL,
		MinEndLL:            cfg.MinEndLL,
		RequiredPlayers:     cfg.RequiredPlayers,
		DefaultCharProb:     cfg.DefaultCharProb,
		MainCharProb:        cfg.MainCharProb,
		SecCharProb:         cfg.SecCharProb,
		NoLabelObjVal:       cfg.NoLabelObjVal,
	}, nil
}

// DefaultParams returns the constants used by the original MTV Melee
// deployments.
func DefaultParams() Params {
	return Params{
		AnnounceToStartMean: 60.0,
		AnnounceToStartSD:   180.0,
		EndToReportMean:     30.0,
		EndToReportSD:       180.0,
		TimeSlack:           300.0,
		MinStartLL:          -12.0,
		MinEndLL:            -12.0,
		RequiredPlayers:     2,
		DefaultCharProb:     0.057028,
		MainCharProb:        0.8,
		SecCharProb:         0.1,
		NoLabelObjVal:       -25.0,
	}
}
