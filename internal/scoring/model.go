package scoring

import (
	"math"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/replay-labeller/internal/models"
	"github.com/yourusername/replay-labeller/internal/roster"
)

// Model scores candidate windows of recorded games against bracket matches.
// A score of math.Inf(-1) marks a structurally impossible pairing; it is a
// value, never an error.
type Model struct {
	params   Params
	profiles models.ProfileTable
	startPDF distuv.Normal
	endPDF   distuv.Normal
}

// NewModel creates a scoring model. profiles may be nil when no roster
// information is available.
func NewModel(params Params, profiles models.ProfileTable) *Model {
	if profiles == nil {
		profiles = models.ProfileTable{}
	}
	return &Model{
		params:   params,
		profiles: profiles,
		startPDF: distuv.Normal{Mu: params.AnnounceToStartMean, Sigma: params.AnnounceToStartSD},
		endPDF:   distuv.Normal{Mu: params.EndToReportMean, Sigma: params.EndToReportSD},
	}
}

// Params returns the model constants.
func (m *Model) Params() Params {
	return m.params
}

// Score returns the log-likelihood of the match having produced the given
// window of games. Adding a finite component to -Inf stays -Inf, so either
// component can veto the pairing on its own.
func (m *Model) Score(match *models.Match, games []models.Game) float64 {
	return m.TimeLL(match, games) + m.CharLogProb(match, games)
}

// TimeLL scores the plausibility of the window's timing: the gap from the
// match being announced to the first game starting, and from the last game
// ending to the result being reported.
func (m *Model) TimeLL(match *models.Match, games []models.Game) float64 {
	startDiff := games[0].StartedAt.Sub(match.StartedAt).Seconds()
	endDiff := match.CompletedAt.Sub(games[len(games)-1].EndedAt).Seconds()

	// Games never start before the match is announced, nor end after the
	// result is reported, beyond the allowed slack.
	if startDiff < -m.params.TimeSlack || endDiff < -m.params.TimeSlack {
		return math.Inf(-1)
	}

	startL := m.startPDF.Prob(startDiff)
	endL := m.endPDF.Prob(endDiff)

	// A zero density must never reach the logarithm.
	if startL == 0 || endL == 0 {
		return math.Inf(-1)
	}

	startLL := math.Max(m.params.MinStartLL, math.Log(startL))
	endLL := math.Max(m.params.MinEndLL, math.Log(endL))

	return startLL + endLL
}

// CharLogProb scores the plausibility of the window's ports, characters, and
// win pattern against the match score and the players' known mains.
func (m *Model) CharLogProb(match *models.Match, games []models.Game) float64 {
	// Controller ports are assumed never to change within a match.
	occupied := games[0].OccupiedPorts()
	for _, g := range games[1:] {
		if !slices.Equal(occupied, g.OccupiedPorts()) {
			return math.Inf(-1) // inconsistent ports
		}
	}
	if len(occupied) != 2 {
		return math.Inf(-1)
	}
	a, b := occupied[0], occupied[1]

	aWins := lo.CountBy(games, func(g models.Game) bool { return !g.Ports[a].DeadAtEnd })
	bWins := lo.CountBy(games, func(g models.Game) bool { return !g.Ports[b].DeadAtEnd })

	// Infer which player sat on which port from the match score.
	var p1Port, p2Port int
	switch {
	case aWins == match.Player1Score && bWins == match.Player2Score:
		p1Port, p2Port = a, b
	case aWins == match.Player2Score && bWins == match.Player1Score:
		p1Port, p2Port = b, a
	default:
		// The reported score cannot be reconciled with the per-port wins.
		return math.Inf(-1)
	}

	// In a valid best-of-N the winner takes the deciding game; this filters
	// impossible sequences like win-win-loss in a best of 3.
	winner := a
	if bWins > aWins {
		winner = b
	}
	if games[len(games)-1].Ports[winner].DeadAtEnd {
		return math.Inf(-1)
	}

	total := 0.0
	for player := 1; player <= 2; player++ {
		port := p1Port
		name := match.Player1Name
		if player == 2 {
			port = p2Port
			name = match.Player2Name
		}
		total += m.playerCharLogProb(name, port, games)
	}

	return total
}

// playerCharLogProb scores one player's character selections across the
// window. Contributions are divided by the window length, making windows of
// different lengths comparable via a normalized geometric mean.
func (m *Model) playerCharLogProb(displayName string, port int, games []models.Game) float64 {
	profile, known := m.profiles[roster.Fingerprint(displayName)]
	if !known || (len(profile.Mains) == 0 && len(profile.Secondaries) == 0) {
		// Nothing is known about this player; charge the default guess
		// probability once.
		return math.Log(m.params.DefaultCharProb)
	}

	// Split probability mass between mains and secondaries. When one group
	// is empty its mass folds into the other.
	mainProb, secProb := m.params.MainCharProb, m.params.SecCharProb
	switch {
	case len(profile.Secondaries) == 0:
		mainProb, secProb = mainProb+secProb, 0
	case len(profile.Mains) == 0:
		mainProb, secProb = 0, mainProb+secProb
	}

	n := float64(len(games))
	total := 0.0
	for _, g := range games {
		char := g.Ports[port].Character
		switch {
		case profile.Mains.Contains(char):
			total += math.Log(mainProb/float64(len(profile.Mains))) / n
		case profile.Secondaries.Contains(char):
			total += math.Log(secProb/float64(len(profile.Secondaries))) / n
		default:
			total += math.Log((1-mainProb-secProb)*m.params.DefaultCharProb) / n
		}
	}
	return total
}
