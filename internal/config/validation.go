// Package config provides configuration management for the replay labeller.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if _, err := time.LoadLocation(cfg.Replays.TimeZone); err != nil {
		return fmt.Errorf("replays.time_zone %q is not a valid IANA zone: %w", cfg.Replays.TimeZone, err)
	}

	// The main/secondary masses must leave room for the "neither" category,
	// otherwise its log term is undefined.
	if cfg.Scoring.MainCharProb+cfg.Scoring.SecCharProb >= 1 {
		return fmt.Errorf("scoring.main_char_prob + scoring.sec_char_prob must be below 1, got %.3f",
			cfg.Scoring.MainCharProb+cfg.Scoring.SecCharProb)
	}

	// The no-label payoff must be reachable: if it sits above every possible
	// clamped timing score, no candidate could ever be retained.
	if cfg.Scoring.NoLabelObjVal >= 0 {
		return fmt.Errorf("scoring.nolabel_objval must be negative, got %.3f", cfg.Scoring.NoLabelObjVal)
	}

	if cfg.Watch.Enabled && cfg.Watch.Schedule == "" {
		return fmt.Errorf("watch.schedule is required when watch mode is enabled")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateCredentials checks that the Challonge credentials needed for a
// bracket fetch are present. Fetching is the only operation that needs them,
// so this is separate from Validate.
func ValidateCredentials(cfg *Config) error {
	if cfg.Challonge.Username == "" || cfg.Challonge.APIKey == "" {
		return fmt.Errorf("challonge.username and challonge.api_key must be set (directly, via environment, or via AWS secrets) to fetch bracket data")
	}
	return nil
}
