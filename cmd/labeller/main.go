package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/replay-labeller/internal/config"
	"github.com/yourusername/replay-labeller/internal/labeller"
	"github.com/yourusername/replay-labeller/internal/logger"
	"github.com/yourusername/replay-labeller/internal/repository"
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
	rankLabels    bool
	persistRun    bool

	cfg *config.Config
	lg  *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringArrayVarP(&tournamentIDs, "tournament", "t", nil, "(repeatable) Challonge tournament id to fetch and label")
	rootCmd.Flags().StringVarP(&replayDir, "replays", "s", "", "Directory holding per-setup replay subdirectories")
	rootCmd.Flags().StringVarP(&rosterPath, "roster", "p", "", "Player roster CSV with main/secondary character hints")
	rootCmd.Flags().BoolVar(&rankLabels, "rank", false, "Compute per-match label probabilities")
	rootCmd.Flags().BoolVar(&persistRun, "persist", false, "Save the run to the local result store")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "labeller",
	Short: "Match tournament bracket sets to their recorded replays",
	Long: `Fetches completed matches from Challonge brackets, parses replay files
recorded on numbered setups, and solves for the most likely assignment of
replay windows to bracket matches.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLabeller()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("labeller %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
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

	// Credentials can come from AWS Secrets Manager instead of the config
	// file or environment.
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

func runLabeller() error {
	if len(tournamentIDs) == 0 {
		return fmt.Errorf("at least one --tournament id is required")
	}
	if replayDir == "" {
		return fmt.Errorf("--replays directory is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		lg.WithField("signal", sig.String()).Warn("Received signal, cancelling run")
		cancel()
	}()

	var store *repository.Store
	if persistRun {
		var err error
		store, err = repository.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open result store: %w", err)
		}
		defer store.Close()
	}

	svc, err := labeller.NewService(cfg, store, lg)
	if err != nil {
		return fmt.Errorf("failed to build labelling service: %w", err)
	}
	defer svc.Close()

	result, err := svc.Run(ctx, labeller.Options{
		TournamentIDs: tournamentIDs,
		ReplayDir:     replayDir,
		RosterPath:    rosterPath,
		Rank:          rankLabels,
		Persist:       persistRun,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Labelled %d of %d matches (avg objective %.3f, %d missed)\n",
		result.Assignment.LabelledCount(), len(result.Matches),
		result.Summary.AverageObjective, result.Summary.MissedCount)
	fmt.Printf("Reports written to %s\n", cfg.Output.Dir)
	return nil
}
