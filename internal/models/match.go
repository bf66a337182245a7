package models

import (
	"fmt"
	"time"
)

// Match represents a completed bracket match reported by the tournament
// provider. Instances are created by the bracket fetcher and are read-only
// afterwards.
type Match struct {
	ID           int64     `json:"id"`
	Player1ID    int64     `json:"player1_id"`
	Player2ID    int64     `json:"player2_id"`
	Player1Name  string    `json:"player1_name"`
	Player2Name  string    `json:"player2_name"`
	Player1Score int       `json:"player1_score"`
	Player2Score int       `json:"player2_score"`
	ScoresCSV    string    `json:"scores_csv"`
	Round        int       `json:"round"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// GameCount returns the number of games the match must have produced.
func (m *Match) GameCount() int {
	return m.Player1Score + m.Player2Score
}

// Description returns a short human-readable summary of the match.
func (m *Match) Description() string {
	return fmt.Sprintf("%s vs %s [%s]", m.Player1Name, m.Player2Name, m.ScoresCSV)
}
