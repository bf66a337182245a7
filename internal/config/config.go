// Package config provides configuration management for the replay labeller.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Challonge ChallongeConfig `mapstructure:"challonge" validate:"required"`
	Replays   ReplaysConfig   `mapstructure:"replays" validate:"required"`
	Scoring   ScoringConfig   `mapstructure:"scoring" validate:"required"`
	Solver    SolverConfig    `mapstructure:"solver" validate:"required"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Output    OutputConfig    `mapstructure:"output" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ChallongeConfig represents Challonge API configuration
type ChallongeConfig struct {
	APIURL        string  `mapstructure:"api_url" validate:"required,url"`
	Username      string  `mapstructure:"username"`
	APIKey        string  `mapstructure:"api_key"`
	RateLimit     float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSecs  int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	RetryAttempts int     `mapstructure:"retry_attempts" validate:"gte=0"`
}

// ReplaysConfig represents replay parsing configuration
type ReplaysConfig struct {
	// TimeZone is the zone replay timestamps are recorded in; also used for
	// report display.
	TimeZone string `mapstructure:"time_zone" validate:"required"`
	// SetupTimeOffsets gives per-setup clock corrections in seconds; the
	// offset is subtracted from every timestamp recorded by that setup.
	SetupTimeOffsets map[string]int `mapstructure:"setup_time_offsets"`
}

// ScoringConfig holds the tunable parameters of the likelihood model. These
// are model constants, not behavior toggles; the defaults mirror observed
// tournament timing data.
type ScoringConfig struct {
	AnnounceToStartMean float64 `mapstructure:"announce_to_start_mean"`
	AnnounceToStartSD   float64 `mapstructure:"announce_to_start_sd" validate:"required,gt=0"`
	EndToReportMean     float64 `mapstructure:"end_to_report_mean"`
	EndToReportSD       float64 `mapstructure:"end_to_report_sd" validate:"required,gt=0"`
	TimeSlackSeconds    float64 `mapstructure:"time_slack_seconds" validate:"gte=0"`
	MinStartLL          float64 `mapstructure:"min_start_ll" validate:"lt=0"`
	MinEndLL            float64 `mapstructure:"min_end_ll" validate:"lt=0"`
	RequiredPlayers     int     `mapstructure:"required_players" validate:"required,oneof=2 4"`
	DefaultCharProb     float64 `mapstructure:"default_char_prob" validate:"required,gt=0,lt=1"`
	MainCharProb        float64 `mapstructure:"main_char_prob" validate:"required,gt=0,lt=1"`
	SecCharProb         float64 `mapstructure:"sec_char_prob" validate:"gte=0,lt=1"`
	NoLabelObjVal       float64 `mapstructure:"nolabel_objval" validate:"lt=0"`
}

// SolverConfig represents combinatorial solver limits
type SolverConfig struct {
	MaxNodes         int `mapstructure:"max_nodes" validate:"required,gt=0"`
	TimeLimitSeconds int `mapstructure:"time_limit_seconds" validate:"required,gt=0"`
}

// StoreConfig represents the local result store configuration
type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// OutputConfig represents report output configuration
type OutputConfig struct {
	Dir                  string  `mapstructure:"dir" validate:"required"`
	FullReport           string  `mapstructure:"full_report" validate:"required"`
	SingleReport         string  `mapstructure:"single_report" validate:"required"`
	ProbabilityReport    string  `mapstructure:"probability_report" validate:"required"`
	ProbabilityThreshold float64 `mapstructure:"probability_threshold" validate:"gte=0,lte=1"`
	IncludeNoLabel       bool    `mapstructure:"include_nolabel"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// WatchConfig represents live-tournament watch mode configuration
type WatchConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Schedule   string `mapstructure:"schedule"`
	HealthPort int    `mapstructure:"health_port"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Location resolves the configured replay time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Replays.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid replay time zone %q: %w", c.Replays.TimeZone, err)
	}
	return loc, nil
}

// CacheTTL returns the Challonge response cache TTL.
func (c *ChallongeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// TimeLimit returns the per-solve wall clock limit.
func (c *SolverConfig) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds) * time.Second
}
