package bracket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/config"
	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/models"
)

// Client fetches tournament data from the Challonge v1 API. Responses are
// cached briefly so watch-mode re-runs inside the TTL reuse them.
type Client struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	username   string
	apiKey     string
	cache      *gocache.Cache
	logger     *logrus.Logger
}

// NewClient creates a Challonge API client. Credentials must be present;
// callers validate them before any fetch via config.ValidateCredentials.
func NewClient(cfg *config.ChallongeConfig, logger *logrus.Logger) *Client {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.RateLimit = cfg.RateLimit
	if cfg.RetryAttempts > 0 {
		httpCfg.MaxRetries = cfg.RetryAttempts
	}

	return &Client{
		httpClient: NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL:    cfg.APIURL,
		username:   cfg.Username,
		apiKey:     cfg.APIKey,
		cache:      gocache.New(cfg.CacheTTL(), 2*cfg.CacheTTL()),
		logger:     logger,
	}
}

// challongeMatch is the wire shape of one bracket match.
type challongeMatch struct {
	ID          int64      `json:"id"`
	Player1ID   *int64     `json:"player1_id"`
	Player2ID   *int64     `json:"player2_id"`
	ScoresCSV   string     `json:"scores_csv"`
	Round       int        `json:"round"`
	State       string     `json:"state"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type challongeMatchEnvelope struct {
	Match challongeMatch `json:"match"`
}

// challongeParticipant is the wire shape of one bracket participant.
type challongeParticipant struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

type challongeParticipantEnvelope struct {
	Participant challongeParticipant `json:"participant"`
}

// Tournament holds the fetched data for one bracket: completed matches with
// resolved player names, plus the id -> display name map.
type Tournament struct {
	ID           string
	Matches      []*models.Match
	Participants map[int64]string
}

// FetchTournament retrieves a bracket's matches and participants. Matches
// that are not complete, lack both players, or carry an unparseable score
// string are dropped, matching how bracket DQs and forfeits are recorded.
func (c *Client) FetchTournament(ctx context.Context, tournamentID string) (*Tournament, error) {
	if tournamentID == "" {
		return nil, models.ErrTournamentRequired
	}

	var rawMatches []challongeMatchEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/tournaments/%s/matches.json", url.PathEscape(tournamentID)), &rawMatches); err != nil {
		metrics.RecordBracketFetch("failure")
		return nil, fmt.Errorf("failed to fetch matches for %s: %w", tournamentID, err)
	}

	var rawParticipants []challongeParticipantEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/tournaments/%s/participants.json", url.PathEscape(tournamentID)), &rawParticipants); err != nil {
		metrics.RecordBracketFetch("failure")
		return nil, fmt.Errorf("failed to fetch participants for %s: %w", tournamentID, err)
	}
	metrics.RecordBracketFetch("success")

	participants := make(map[int64]string, len(rawParticipants))
	for _, env := range rawParticipants {
		participants[env.Participant.ID] = env.Participant.DisplayName
	}

	var matches []*models.Match
	dropped := 0
	for _, env := range rawMatches {
		match, ok := buildMatch(env.Match, participants)
		if !ok {
			dropped++
			continue
		}
		matches = append(matches, match)
	}

	c.logger.WithFields(logrus.Fields{
		"tournament":   tournamentID,
		"matches":      len(matches),
		"dropped":      dropped,
		"participants": len(participants),
	}).Info("Fetched bracket")

	return &Tournament{ID: tournamentID, Matches: matches, Participants: participants}, nil
}

// FetchAll fetches several brackets (e.g. a main and an amateur bracket)
// into one combined match list.
func (c *Client) FetchAll(ctx context.Context, tournamentIDs []string) ([]*models.Match, error) {
	var all []*models.Match
	for _, id := range tournamentIDs {
		t, err := c.FetchTournament(ctx, id)
		if err != nil {
			return nil, err
		}
		all = append(all, t.Matches...)
	}
	return all, nil
}

func buildMatch(raw challongeMatch, participants map[int64]string) (*models.Match, bool) {
	if raw.State != "complete" || raw.Player1ID == nil || raw.Player2ID == nil {
		return nil, false
	}
	if raw.StartedAt == nil || raw.CompletedAt == nil {
		return nil, false
	}
	s1, s2, ok := ParseScoresCSV(raw.ScoresCSV)
	if !ok || s1+s2 == 0 {
		return nil, false
	}

	return &models.Match{
		ID:           raw.ID,
		Player1ID:    *raw.Player1ID,
		Player2ID:    *raw.Player2ID,
		Player1Name:  participants[*raw.Player1ID],
		Player2Name:  participants[*raw.Player2ID],
		Player1Score: s1,
		Player2Score: s2,
		ScoresCSV:    raw.ScoresCSV,
		Round:        raw.Round,
		StartedAt:    *raw.StartedAt,
		CompletedAt:  *raw.CompletedAt,
	}, true
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.baseURL + path

	if cached, found := c.cache.Get(endpoint); found {
		return json.Unmarshal(cached.([]byte), out)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.apiKey)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: Challonge rejected the API key", models.ErrMissingCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("challonge returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.cache.SetDefault(endpoint, body)
	return json.Unmarshal(body, out)
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}
