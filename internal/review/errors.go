package review

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when a review, change or version does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the standing for an
	// operation, including bad webhook tokens.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned when input is rejected. Nothing is
	// changed when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrConflictOnCommit is returned when the review's files are out of
	// date at commit time. The review state has been rolled back.
	ErrConflictOnCommit = errors.New("files are out of date")

	// ErrCommandFailure is returned for commit failures with a known
	// cause.
	ErrCommandFailure = errors.New("command failed")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// invalid builds a single-field validation error.
func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Fields: map[string]string{field: fmt.Sprintf(format, args...)},
	}
}

// Error implements error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, field+": "+e.Fields[field])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// CommandError is a recognised commit failure rewritten for users.
type CommandError struct {
	Message string
	Err     error
}

// Error implements error.
func (e *CommandError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrCommandFailure.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailure
}

// Unwrap returns the underlying version store error.
func (e *CommandError) Unwrap() error {
	return e.Err
}
