package candidates

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/replay-labeller/internal/models"
	"github.com/yourusername/replay-labeller/internal/scoring"
)

var t0 = time.Date(2024, 3, 16, 18, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func game(start time.Time, port0Wins bool) models.Game {
	g := models.Game{
		StartedAt:   start,
		EndedAt:     start.Add(4 * time.Minute),
		Stage:       "BATTLEFIELD",
		PlayerCount: 2,
	}
	g.Ports[0] = &models.PortState{Character: "FOX", DeadAtEnd: !port0Wins}
	g.Ports[1] = &models.PortState{Character: "MARTH", DeadAtEnd: port0Wins}
	return g
}

func sweep(p1, p2 string, start, end time.Time) *models.Match {
	return &models.Match{
		Player1Name:  p1,
		Player2Name:  p2,
		Player1Score: 2,
		Player2Score: 0,
		ScoresCSV:    "2-0",
		StartedAt:    start.Add(-time.Minute),
		CompletedAt:  end.Add(time.Minute),
	}
}

func TestGenerateFindsMatchingWindow(t *testing.T) {
	// Setup with three games; the match corresponds to games 0-1.
	setup := models.Setup{ID: "Drive #1", Games: []models.Game{
		game(t0, true),
		game(t0.Add(6*time.Minute), true),
		game(t0.Add(2*time.Hour), false),
	}}
	match := sweep("Alice", "Bob", setup.Games[0].StartedAt, setup.Games[1].EndedAt)

	model := scoring.NewModel(scoring.DefaultParams(), nil)
	result, err := Generate(context.Background(), []*models.Match{match}, []models.Setup{setup}, model, testLogger())
	require.NoError(t, err)

	require.Len(t, result.Labels, 1)
	require.NotEmpty(t, result.Labels[0])

	best := result.Labels[0][0]
	assert.Equal(t, 0, best.SetupIndex)
	assert.Equal(t, 0, best.GameIndex)
	assert.Equal(t, len(result.Labels[0]), result.SetupCounts[0])

	// Candidates come back best first.
	for i := 1; i < len(result.Labels[0]); i++ {
		assert.LessOrEqual(t, result.Labels[0][i].LogLikelihood, result.Labels[0][i-1].LogLikelihood)
	}
}

func TestGenerateRejectsShortSetups(t *testing.T) {
	setup := models.Setup{ID: "Drive #1", Games: []models.Game{game(t0, true)}}
	match := sweep("Alice", "Bob", t0, t0.Add(10*time.Minute))

	model := scoring.NewModel(scoring.DefaultParams(), nil)
	result, err := Generate(context.Background(), []*models.Match{match}, []models.Setup{setup}, model, testLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Labels[0], "a two game match cannot fit a one game setup")
}

func TestGenerateSkipsWrongPlayerCount(t *testing.T) {
	doubles := game(t0, true)
	doubles.Ports[2] = &models.PortState{Character: "PEACH"}
	doubles.Ports[3] = &models.PortState{Character: "SHEIK", DeadAtEnd: true}
	doubles.PlayerCount = 4

	setup := models.Setup{ID: "Drive #1", Games: []models.Game{
		doubles,
		game(t0.Add(6*time.Minute), true),
	}}
	match := sweep("Alice", "Bob", t0, t0.Add(10*time.Minute))

	model := scoring.NewModel(scoring.DefaultParams(), nil)
	result, err := Generate(context.Background(), []*models.Match{match}, []models.Setup{setup}, model, testLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Labels[0], "windows containing a doubles game must be skipped")
}

func TestGeneratePrunesImplausibleTiming(t *testing.T) {
	// Games hours away from the match window score below the no-label payoff
	// or are vetoed outright; either way nothing survives.
	setup := models.Setup{ID: "Drive #1", Games: []models.Game{
		game(t0, true),
		game(t0.Add(6*time.Minute), true),
	}}
	match := sweep("Alice", "Bob", t0.Add(8*time.Hour), t0.Add(9*time.Hour))

	model := scoring.NewModel(scoring.DefaultParams(), nil)
	result, err := Generate(context.Background(), []*models.Match{match}, []models.Setup{setup}, model, testLogger())
	require.NoError(t, err)
	assert.Empty(t, result.Labels[0])
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	setup := models.Setup{ID: "Drive #1", Games: []models.Game{game(t0, true)}}
	match := sweep("Alice", "Bob", t0, t0.Add(10*time.Minute))

	model := scoring.NewModel(scoring.DefaultParams(), nil)
	_, err := Generate(ctx, []*models.Match{match}, []models.Setup{setup}, model, testLogger())
	require.ErrorIs(t, err, context.Canceled)
}
