/*
errors.go - Centralized error types for the surf package

PURPOSE:
  All error types in one place. Backends wrap these with context; the HTTP
  layer maps them to responses with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Auth      - No signed-in user (redirect, never shown as an error)
  2. Fetch     - A backend read failed; the whole report is abandoned
  3. Malformed - A backend row failed validation (reported as a fetch failure)

USAGE:
    if errors.Is(err, surf.ErrFetchFailed) {
        // show the generic error state
    }
*/
package surf

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAuthMissing is returned when no user is signed in.
	ErrAuthMissing = errors.New("no authenticated user")

	// ErrFetchFailed is returned when any backend read fails.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrMalformedRecord is returned when a backend row is missing a required
	// field or has an unparseable value.
	ErrMalformedRecord = errors.New("malformed record")

	errRequired = errors.New("required")
	errBadDate  = errors.New("expected YYYY-MM-DD")
	errBadTime  = errors.New("expected HH:MM or HH:MM:SS")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FetchError wraps the failure of a single backend read.
type FetchError struct {
	Op  string // "breaks", "sessions", "forecasts", "user"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// MalformedRecordError describes a row that failed validation.
type MalformedRecordError struct {
	Table  string
	RowID  string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.RowID == "" {
		return fmt.Sprintf("malformed %s row: %s %s", e.Table, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed %s row %s: %s %s", e.Table, e.RowID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

func malformed(table, rowID, field, reason string) error {
	return &MalformedRecordError{Table: table, RowID: rowID, Field: field, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsAuthMissing returns true if the error means nobody is signed in.
func IsAuthMissing(err error) bool {
	return errors.Is(err, ErrAuthMissing)
}

// IsFetchFailure returns true if a backend read failed or returned bad rows.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrFetchFailed) || errors.Is(err, ErrMalformedRecord)
}
