// Package labeller wires the pipeline together: fetch bracket matches, scan
// replay setups, score candidate windows, solve for the single best
// labelling, rank alternatives, and emit reports.
package labeller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/bracket"
	"github.com/yourusername/replay-labeller/internal/candidates"
	"github.com/yourusername/replay-labeller/internal/config"
	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/models"
	"github.com/yourusername/replay-labeller/internal/probability"
	"github.com/yourusername/replay-labeller/internal/replay"
	"github.com/yourusername/replay-labeller/internal/report"
	"github.com/yourusername/replay-labeller/internal/repository"
	"github.com/yourusername/replay-labeller/internal/roster"
	"github.com/yourusername/replay-labeller/internal/scoring"
	"github.com/yourusername/replay-labeller/internal/solver"
)

// Options selects what a single run does.
type Options struct {
	// TournamentIDs are the bracket identifiers to fetch and label.
	TournamentIDs []string
	// ReplayDir is the directory holding per-setup replay subdirectories.
	ReplayDir string
	// RosterPath points at the player roster CSV; empty means no hints.
	RosterPath string
	// Rank enables the probability ranking pass on top of the single
	// labelling.
	Rank bool
	// Persist saves the run to the local store when one is configured.
	Persist bool
}

// Result is everything a run produced.
type Result struct {
	Matches    []*models.Match
	Setups     []models.Setup
	Candidates *candidates.Result
	Assignment *models.Assignment
	Rankings   [][]models.RankedLabel
	Summary    report.Summary
	Run        *repository.Run
}

// Service runs the labelling pipeline end to end.
type Service struct {
	cfg      *config.Config
	client   *bracket.Client
	scanner  *replay.Scanner
	solver   *solver.AssignmentSolver
	reporter *report.Writer
	store    *repository.Store
	logger   *logrus.Logger
}

// NewService builds a service from configuration. The store is optional;
// pass nil to skip persistence.
func NewService(cfg *config.Config, store *repository.Store, logger *logrus.Logger) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve time zone: %w", err)
	}

	assignmentSolver := solver.NewAssignmentSolver(
		solver.NewSimplexBackend(),
		cfg.Scoring.NoLabelObjVal,
		cfg.Solver.MaxNodes,
		cfg.Solver.TimeLimit(),
		logger,
	)

	return &Service{
		cfg:      cfg,
		client:   bracket.NewClient(&cfg.Challonge, logger),
		scanner:  replay.NewScanner(loc, cfg.Replays.SetupTimeOffsets, logger),
		solver:   assignmentSolver,
		reporter: report.NewWriter(loc, cfg.Scoring.NoLabelObjVal, logger),
		store:    store,
		logger:   logger,
	}, nil
}

// Close releases the service's network resources.
func (s *Service) Close() error {
	return s.client.Close()
}

// Run executes one complete labelling pass and writes the configured
// reports.
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.TournamentIDs) == 0 {
		return nil, models.ErrTournamentRequired
	}

	started := time.Now()

	matches, err := s.client.FetchAll(ctx, opts.TournamentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brackets: %w", err)
	}

	setups, err := s.scanner.ScanAllSetups(opts.ReplayDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan replays: %w", err)
	}

	profiles, err := roster.ParseFile(opts.RosterPath, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	params, err := scoring.FromConfig(&s.cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	model := scoring.NewModel(params, profiles)

	s.logger.WithFields(logrus.Fields{
		"matches": len(matches),
		"setups":  len(setups),
		"players": len(profiles),
	}).Info("Computing labels")

	cands, err := candidates.Generate(ctx, matches, setups, model, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to generate candidates: %w", err)
	}

	assignment, err := s.solver.Solve(ctx, matches, cands.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to solve assignment: %w", err)
	}
	metrics.SetMatchesLabelled(assignment.LabelledCount())

	result := &Result{
		Matches:    matches,
		Setups:     setups,
		Candidates: cands,
		Assignment: assignment,
	}

	if opts.Rank {
		estimator := probability.NewEstimator(s.solver, s.logger)
		rankings, err := estimator.RankAll(ctx, matches, cands.Labels, probability.Options{
			IncludeNoLabel: s.cfg.Output.IncludeNoLabel,
			Threshold:      s.cfg.Output.ProbabilityThreshold,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to rank labels: %w", err)
		}
		result.Rankings = rankings
	}

	summary, err := s.reporter.WriteFiles(
		s.cfg.Output.Dir,
		s.cfg.Output.FullReport,
		s.cfg.Output.SingleReport,
		s.cfg.Output.ProbabilityReport,
		matches, setups, cands, assignment, result.Rankings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write reports: %w", err)
	}
	result.Summary = summary

	if opts.Persist && s.store != nil {
		run, err := s.store.SaveRun(ctx, runName(opts.TournamentIDs), matches, setups, assignment, result.Rankings)
		if err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		result.Run = run
		s.logger.WithField("run_id", run.ID).Info("Persisted labelling run")
	}

	s.logger.WithFields(logrus.Fields{
		"labelled":      assignment.LabelledCount(),
		"missed":        summary.MissedCount,
		"avg_objective": summary.AverageObjective,
		"elapsed":       time.Since(started).Round(time.Millisecond),
	}).Info("Labelling run complete")

	return result, nil
}

func runName(ids []string) string {
	if len(ids) == 1 {
		return ids[0]
	}
	name := ids[0]
	for _, id := range ids[1:] {
		name += "+" + id
	}
	return name
}
