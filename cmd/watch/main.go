package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/replay-labeller/internal/config"
	"github.com/yourusername/replay-labeller/internal/health"
	"github.com/yourusername/replay-labeller/internal/labeller"
	"github.com/yourusername/replay-labeller/internal/logger"
	"github.com/yourusername/replay-labeller/internal/metrics"
	"github.com/yourusername/replay-labeller/internal/repository"
	"github.com/yourusername/replay-labeller/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile    string
	tournamentIDs []string
	replayDir     string
	rosterPath    string

	cfg *config.Config
	lg  *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringArrayVarP(&tournamentIDs, "tournament", "t", nil, "(repeatable) Challonge tournament id to watch")
	rootCmd.Flags().StringVarP(&replayDir, "replays", "s", "", "Directory holding per-setup replay subdirectories")
	rootCmd.Flags().StringVarP(&rosterPath, "roster", "p", "", "Player roster CSV with main/secondary character hints")
}

var rootCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically relabel an in-progress tournament",
	Long: `Runs the labelling pipeline on a cron schedule so reports stay current
while a tournament is still being played. Exposes health and metrics
endpoints for supervision.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	lg = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets from AWS: %w", err)
		}
		lg.Info("Loaded Challonge credentials from AWS Secrets Manager")
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return config.ValidateCredentials(cfg)
}

func runWatch() error {
	if len(tournamentIDs) == 0 {
		return fmt.Errorf("at least one --tournament id is required")
	}
	if replayDir == "" {
		return fmt.Errorf("--replays directory is required")
	}
	if cfg.Watch.Schedule == "" {
		return fmt.Errorf("watch.schedule must be set for watch mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer store.Close()

	svc, err := labeller.NewService(cfg, store, lg)
	if err != nil {
		return fmt.Errorf("failed to build labelling service: %w", err)
	}
	defer svc.Close()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Watch.HealthPort,
		Logger:      lg,
		Store:       store,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path, lg); err != nil {
				lg.WithError(err).Error("Metrics server error")
			}
		}()
	}

	opts := labeller.Options{
		TournamentIDs: tournamentIDs,
		ReplayDir:     replayDir,
		RosterPath:    rosterPath,
		Rank:          true,
		Persist:       true,
	}

	sched := scheduler.NewScheduler(svc, opts, func(result *labeller.Result) {
		healthServer.RecordRun(time.Now())
	}, lg)
	if err := sched.Schedule(cfg.Watch.Schedule); err != nil {
		return fmt.Errorf("failed to schedule relabelling job: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	healthServer.SetReady(true)

	lg.WithFields(logrus.Fields{
		"schedule":    cfg.Watch.Schedule,
		"tournaments": tournamentIDs,
		"next_run":    sched.NextRun().Format(time.RFC3339),
	}).Info("Watch mode running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	lg.WithField("signal", sig.String()).Info("Shutting down")
	healthServer.SetReady(false)
	if err := sched.Stop(); err != nil {
		lg.WithError(err).Error("Failed to stop scheduler cleanly")
	}
	cancel()
	return nil
}
