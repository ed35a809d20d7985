// Package models defines the data structures for the college rank predictor.
package models

import (
	"errors"
)

// Query errors. These are the only failures surfaced by a prediction call.
var (
	ErrInvalidRank      = errors.New("rank must be a positive integer")
	ErrUnknownExam      = errors.New("unknown exam type")
	ErrMissingExam      = errors.New("exam type cannot be empty")
	ErrInvalidTolerance = errors.New("tolerance percent cannot be negative")
	ErrInvalidLimit     = errors.New("limit cannot be negative")
)

// Record validation errors. A record failing any of these is dropped at load time.
var (
	ErrMissingInstitution = errors.New("institution cannot be empty")
	ErrMissingProgram     = errors.New("program cannot be empty")
	ErrMissingCutoff      = errors.New("record needs a positive closing rank or a score range")
	ErrInvalidClosingRank = errors.New("closing rank must be positive")
	ErrInvalidOpeningRank = errors.New("opening rank cannot be negative")
	ErrOpeningAfterClose  = errors.New("opening rank is greater than closing rank")
	ErrInvalidScoreRange  = errors.New("invalid score range")
)

// IsQueryError reports whether err is caused by a malformed prediction query.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrInvalidRank) ||
		errors.Is(err, ErrUnknownExam) ||
		errors.Is(err, ErrMissingExam) ||
		errors.Is(err, ErrInvalidTolerance) ||
		errors.Is(err, ErrInvalidLimit)
}
