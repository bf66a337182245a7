// Package repository persists labelling runs to a local SQLite database so
// repeated runs over the same tournament can be compared.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourusername/replay-labeller/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	tournament TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	objective REAL NOT NULL,
	match_count INTEGER NOT NULL,
	labelled_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	match_id INTEGER NOT NULL,
	match_description TEXT NOT NULL,
	setup_id TEXT NOT NULL,
	game_index INTEGER NOT NULL,
	log_likelihood REAL NOT NULL,
	PRIMARY KEY (run_id, match_id)
);

CREATE TABLE IF NOT EXISTS probabilities (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	match_id INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	setup_id TEXT,
	game_index INTEGER,
	probability REAL NOT NULL,
	PRIMARY KEY (run_id, match_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_tournament ON runs(tournament, created_at);
`

// Store wraps the SQLite database holding labelling results.
type Store struct {
	db *sql.DB
}

// Run is one persisted labelling run summary.
type Run struct {
	ID            uuid.UUID
	Tournament    string
	CreatedAt     time.Time
	Objective     float64
	MatchCount    int
	LabelledCount int
}

// Open opens (creating if needed) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// The store is written by one process at a time; a single connection
	// avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity; the health server uses it.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRun records one complete labelling run: the summary row, the chosen
// labels, and (when present) the per-match probability tables.
func (s *Store) SaveRun(ctx context.Context, tournament string, matches []*models.Match, setups []models.Setup, assignment *models.Assignment, rankings [][]models.RankedLabel) (*Run, error) {
	run := &Run{
		ID:            uuid.New(),
		Tournament:    tournament,
		CreatedAt:     time.Now().UTC(),
		Objective:     assignment.Objective,
		MatchCount:    len(matches),
		LabelledCount: assignment.LabelledCount(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, tournament, created_at, objective, match_count, labelled_count) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Tournament, run.CreatedAt, run.Objective, run.MatchCount, run.LabelledCount,
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for mi, label := range assignment.Labels {
		if label == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO labels (run_id, match_id, match_description, setup_id, game_index, log_likelihood) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID.String(), matches[mi].ID, matches[mi].Description(),
			setups[label.SetupIndex].ID, label.GameIndex, label.LogLikelihood,
		); err != nil {
			return nil, fmt.Errorf("failed to insert label: %w", err)
		}
	}

	for mi, ranked := range rankings {
		for rank, r := range ranked {
			var setupID any
			var gameIndex any
			if r.Label != nil {
				setupID = setups[r.Label.SetupIndex].ID
				gameIndex = r.Label.GameIndex
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO probabilities (run_id, match_id, rank, setup_id, game_index, probability) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID.String(), matches[mi].ID, rank, setupID, gameIndex, r.Probability,
			); err != nil {
				return nil, fmt.Errorf("failed to insert probability row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run for a tournament, or
// models.ErrNotFound when the tournament has never been labelled.
func (s *Store) LatestRun(ctx context.Context, tournament string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tournament, created_at, objective, match_count, labelled_count
		 FROM runs WHERE tournament = ? ORDER BY created_at DESC LIMIT 1`, tournament)

	var run Run
	var id string
	if err := row.Scan(&id, &run.Tournament, &run.CreatedAt, &run.Objective, &run.MatchCount, &run.LabelledCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run id: %w", err)
	}
	run.ID = parsed
	return &run, nil
}
