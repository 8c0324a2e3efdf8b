package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ErrRetriesExceeded is returned once a retryable transaction has failed
// more times than allowed.
var ErrRetriesExceeded = errors.New("db tx retries exceeded")

// MapSQLError converts sqlite driver errors into the typed errors below so
// callers never depend on the driver package.
func MapSQLError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code {
	case sqlite3.ErrConstraint:
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique,
			sqlite3.ErrConstraintPrimaryKey:

			return &UniqueConstraintError{DBError: sqliteErr}
		}

		return fmt.Errorf("sqlite constraint error: %w", sqliteErr)

	case sqlite3.ErrBusy:
		return &SerializationError{DBError: sqliteErr}

	case sqlite3.ErrLocked:
		return &DeadlockError{DBError: sqliteErr}

	case sqlite3.ErrError:
		if strings.Contains(sqliteErr.Error(), "no such table") {
			return &SchemaError{DBError: sqliteErr}
		}
	}

	return fmt.Errorf("unknown sqlite error: %w", sqliteErr)
}

// UniqueConstraintError reports a duplicate key.
type UniqueConstraintError struct {
	DBError error
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("sql unique constraint violation: %v", e.DBError)
}

func (e *UniqueConstraintError) Unwrap() error {
	return e.DBError
}

// SerializationError means the database was busy; the tx may be retried.
type SerializationError struct {
	DBError error
}

func (e *SerializationError) Error() string {
	return e.DBError.Error()
}

func (e *SerializationError) Unwrap() error {
	return e.DBError
}

// DeadlockError means a table was locked by the same connection.
type DeadlockError struct {
	DBError error
}

func (e *DeadlockError) Error() string {
	return e.DBError.Error()
}

func (e *DeadlockError) Unwrap() error {
	return e.DBError
}

// SchemaError means a query ran against a missing table.
type SchemaError struct {
	DBError error
}

func (e *SchemaError) Error() string {
	return e.DBError.Error()
}

func (e *SchemaError) Unwrap() error {
	return e.DBError
}

// IsUniqueConstraintError reports whether err is a duplicate key error.
func IsUniqueConstraintError(err error) bool {
	var target *UniqueConstraintError
	return errors.As(MapSQLError(err), &target)
}

// IsRetryable reports whether a transaction failing with err may be retried.
func IsRetryable(err error) bool {
	var (
		serErr  *SerializationError
		lockErr *DeadlockError
	)

	return errors.As(err, &serErr) || errors.As(err, &lockErr)
}

// IsSchemaError reports whether err came from a missing table.
func IsSchemaError(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}
