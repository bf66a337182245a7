// Package config provides configuration management for the replay labeller.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields; a missing config file is not an error, defaults and environment
// variables apply instead.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPLAY_LABELLER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults applies the model constants used by the original MTV Melee
// deployments. They are tuned for weekly bracket timing and the observed
// tournament-wide character distribution.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "replay-labeller")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("challonge.api_url", "https://api.challonge.com/v1")
	v.SetDefault("challonge.rate_limit", 5.0)
	v.SetDefault("challonge.cache_ttl_seconds", 60)
	v.SetDefault("challonge.retry_attempts", 5)

	v.SetDefault("replays.time_zone", "America/Los_Angeles")

	v.SetDefault("scoring.announce_to_start_mean", 60.0)
	v.SetDefault("scoring.announce_to_start_sd", 180.0)
	v.SetDefault("scoring.end_to_report_mean", 30.0)
	v.SetDefault("scoring.end_to_report_sd", 180.0)
	v.SetDefault("scoring.time_slack_seconds", 300.0)
	v.SetDefault("scoring.min_start_ll", -12.0)
	v.SetDefault("scoring.min_end_ll", -12.0)
	v.SetDefault("scoring.required_players", 2)
	v.SetDefault("scoring.default_char_prob", 0.057028)
	v.SetDefault("scoring.main_char_prob", 0.8)
	v.SetDefault("scoring.sec_char_prob", 0.1)
	v.SetDefault("scoring.nolabel_objval", -25.0)

	v.SetDefault("solver.max_nodes", 100000)
	v.SetDefault("solver.time_limit_seconds", 120)

	v.SetDefault("store.path", "./output/labels.db")

	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.full_report", "full_output.txt")
	v.SetDefault("output.single_report", "single_output.txt")
	v.SetDefault("output.probability_report", "probability_output.txt")
	v.SetDefault("output.probability_threshold", 0.0)
	v.SetDefault("output.include_nolabel", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.schedule", "*/5 * * * *")
	v.SetDefault("watch.health_port", 8080)
}
