package models

import "errors"

// Custom errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrMissingCredentials  = errors.New("bracket API credentials are missing")
	ErrSolverNodeLimit     = errors.New("solver node limit exceeded")
	ErrSolverInfeasible    = errors.New("solver reported infeasible formulation")
	ErrNonBinarySolution   = errors.New("solver returned a non-binary variable value")
	ErrWindowOutOfBounds   = errors.New("candidate window exceeds setup game sequence")
	ErrTournamentRequired  = errors.New("tournament identifier is required")
)
