package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/replay-labeller/internal/models"
)

var baseTime = time.Date(2024, 3, 16, 18, 0, 0, 0, time.UTC)

// twoPlayerGame builds a game on ports 0 and 1 where port0Wins decides who
// still has stocks at the end.
func twoPlayerGame(start time.Time, duration time.Duration, char0, char1 string, port0Wins bool) models.Game {
	g := models.Game{
		StartedAt:   start,
		EndedAt:     start.Add(duration),
		Stage:       "BATTLEFIELD",
		PlayerCount: 2,
	}
	g.Ports[0] = &models.PortState{Character: char0, DeadAtEnd: !port0Wins}
	g.Ports[1] = &models.PortState{Character: char1, DeadAtEnd: port0Wins}
	return g
}

// sweepMatch is a clean 2-0 with plausible timing around the window.
func sweepMatch(windowStart, windowEnd time.Time) *models.Match {
	return &models.Match{
		ID:           1,
		Player1Name:  "Alice",
		Player2Name:  "Bob",
		Player1Score: 2,
		Player2Score: 0,
		ScoresCSV:    "2-0",
		StartedAt:    windowStart.Add(-time.Minute),
		CompletedAt:  windowEnd.Add(time.Minute),
	}
}

func sweepWindow() []models.Game {
	g1 := twoPlayerGame(baseTime, 4*time.Minute, "FOX", "MARTH", true)
	g2 := twoPlayerGame(baseTime.Add(5*time.Minute), 4*time.Minute, "FOX", "MARTH", true)
	return []models.Game{g1, g2}
}

func TestScorePlausibleSweep(t *testing.T) {
	model := NewModel(DefaultParams(), nil)
	games := sweepWindow()
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)

	ll := model.Score(match, games)
	require.False(t, math.IsInf(ll, -1), "plausible pairing must score finite")
	assert.Greater(t, ll, -25.0, "a clean sweep with good timing should beat the no-label payoff")
}

func TestTimeLLSlackBoundary(t *testing.T) {
	params := DefaultParams()
	model := NewModel(params, nil)
	games := sweepWindow()

	// Announced exactly TimeSlack after the first game started: allowed.
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)
	match.StartedAt = games[0].StartedAt.Add(time.Duration(params.TimeSlack) * time.Second)
	if math.IsInf(model.TimeLL(match, games), -1) {
		t.Fatalf("start diff of exactly -TimeSlack must be allowed")
	}

	// One second beyond the slack: vetoed.
	match.StartedAt = match.StartedAt.Add(time.Second)
	if !math.IsInf(model.TimeLL(match, games), -1) {
		t.Fatalf("start diff beyond -TimeSlack must veto the pairing")
	}
}

func TestTimeLLEndSlack(t *testing.T) {
	params := DefaultParams()
	model := NewModel(params, nil)
	games := sweepWindow()

	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)
	match.CompletedAt = games[1].EndedAt.Add(-time.Duration(params.TimeSlack+1) * time.Second)
	if !math.IsInf(model.TimeLL(match, games), -1) {
		t.Fatalf("completion beyond -TimeSlack before the last game ends must veto")
	}
}

func TestTimeLLFloorsExtremeTails(t *testing.T) {
	params := DefaultParams()
	model := NewModel(params, nil)
	games := sweepWindow()

	// An hour from announcement to first game is deep in the tail, but the
	// per-coordinate floors keep the penalty bounded.
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)
	match.StartedAt = games[0].StartedAt.Add(-time.Hour)
	ll := model.TimeLL(match, games)
	require.False(t, math.IsInf(ll, -1))
	assert.GreaterOrEqual(t, ll, params.MinStartLL+params.MinEndLL)
}

func TestCharLogProbOrientationSymmetry(t *testing.T) {
	model := NewModel(DefaultParams(), nil)
	games := sweepWindow()

	// 2-0 with port 0 winning both games.
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)
	forward := model.CharLogProb(match, games)
	require.False(t, math.IsInf(forward, -1))

	// Swapping the reported players and score keeps the same physical games
	// reconcilable, with the ports mapped the other way around.
	swapped := *match
	swapped.Player1Name, swapped.Player2Name = match.Player2Name, match.Player1Name
	swapped.Player1Score, swapped.Player2Score = match.Player2Score, match.Player1Score
	reversed := model.CharLogProb(&swapped, games)

	assert.InDelta(t, forward, reversed, 1e-12)
}

func TestCharLogProbScoreMismatch(t *testing.T) {
	model := NewModel(DefaultParams(), nil)
	games := sweepWindow() // port 0 wins both

	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)
	match.Player1Score, match.Player2Score = 2, 1
	match.ScoresCSV = "2-1"

	// Two games cannot carry a 2-1 score; the wins cannot be reconciled.
	if !math.IsInf(model.CharLogProb(match, games), -1) {
		t.Fatalf("irreconcilable score must veto the pairing")
	}
}

func TestCharLogProbDecidingGameRule(t *testing.T) {
	model := NewModel(DefaultParams(), nil)

	// Port 0 wins games 1 and 2, loses game 3: a 2-1 where the overall
	// winner dropped the deciding game. Impossible in a best of 3.
	g1 := twoPlayerGame(baseTime, 4*time.Minute, "FOX", "MARTH", true)
	g2 := twoPlayerGame(baseTime.Add(5*time.Minute), 4*time.Minute, "FOX", "MARTH", true)
	g3 := twoPlayerGame(baseTime.Add(10*time.Minute), 4*time.Minute, "FOX", "MARTH", false)
	games := []models.Game{g1, g2, g3}

	match := sweepMatch(g1.StartedAt, g3.EndedAt)
	match.Player1Score, match.Player2Score = 2, 1
	match.ScoresCSV = "2-1"

	if !math.IsInf(model.CharLogProb(match, games), -1) {
		t.Fatalf("winner losing the deciding game must veto the pairing")
	}

	// The legitimate ordering (loss in the middle) is fine.
	games = []models.Game{g1, twoPlayerGame(baseTime.Add(5*time.Minute), 4*time.Minute, "FOX", "MARTH", false),
		twoPlayerGame(baseTime.Add(10*time.Minute), 4*time.Minute, "FOX", "MARTH", true)}
	match.CompletedAt = games[2].EndedAt.Add(time.Minute)
	if math.IsInf(model.CharLogProb(match, games), -1) {
		t.Fatalf("winner taking the deciding game must be allowed")
	}
}

func TestCharLogProbInconsistentPorts(t *testing.T) {
	model := NewModel(DefaultParams(), nil)

	g1 := twoPlayerGame(baseTime, 4*time.Minute, "FOX", "MARTH", true)
	g2 := models.Game{
		StartedAt:   baseTime.Add(5 * time.Minute),
		EndedAt:     baseTime.Add(9 * time.Minute),
		PlayerCount: 2,
	}
	// Same player count, different ports.
	g2.Ports[2] = &models.PortState{Character: "FOX"}
	g2.Ports[3] = &models.PortState{Character: "MARTH", DeadAtEnd: true}

	match := sweepMatch(g1.StartedAt, g2.EndedAt)
	if !math.IsInf(model.CharLogProb(match, []models.Game{g1, g2}), -1) {
		t.Fatalf("port change within a window must veto the pairing")
	}
}

func TestPlayerCharLogProbUsesProfiles(t *testing.T) {
	params := DefaultParams()
	profiles := models.ProfileTable{
		"alice": {Mains: models.NewCharacterSet("FOX"), Secondaries: models.NewCharacterSet("MARTH")},
	}
	model := NewModel(params, profiles)
	games := sweepWindow()
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)

	onMain := model.CharLogProb(match, games)

	// Same games but Alice on a character she is not known for.
	offGames := sweepWindow()
	for i := range offGames {
		offGames[i].Ports[0].Character = "KIRBY"
	}
	offMain := model.CharLogProb(match, offGames)

	require.False(t, math.IsInf(onMain, -1))
	require.False(t, math.IsInf(offMain, -1))
	assert.Greater(t, onMain, offMain, "a known main must score higher than a surprise pick")
}

func TestPlayerCharLogProbUnknownPlayerFlatDefault(t *testing.T) {
	params := DefaultParams()
	model := NewModel(params, nil)
	games := sweepWindow()
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)

	// Two unknown players are charged the default guess once each,
	// independent of which characters appear.
	want := 2 * math.Log(params.DefaultCharProb)
	assert.InDelta(t, want, model.CharLogProb(match, games), 1e-12)
}

func TestPlayerCharLogProbMassFolding(t *testing.T) {
	params := DefaultParams()
	profiles := models.ProfileTable{
		"alice": {Mains: models.NewCharacterSet("FOX")},
	}
	model := NewModel(params, profiles)
	games := sweepWindow()
	match := sweepMatch(games[0].StartedAt, games[1].EndedAt)

	// With no secondaries the secondary mass folds into the single main.
	got := model.CharLogProb(match, games)
	want := math.Log(params.MainCharProb+params.SecCharProb) + math.Log(params.DefaultCharProb)
	assert.InDelta(t, want, got, 1e-12)
}

func TestFromConfigRejectsBadMass(t *testing.T) {
	cfg := configFromParams(DefaultParams())
	cfg.MainCharProb = 0.9
	cfg.SecCharProb = 0.2
	_, err := FromConfig(&cfg)
	require.Error(t, err)
}
