// Package apperr defines the error taxonomy shared across FocusFive packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid")
)

// ParseError reports text that could not be turned into a day. Callers fall
// back to an empty day for the same date.
type ParseError struct {
	Line   int // 1-based, 0 when the error is not tied to a line
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
	}
	return "parse error: " + e.Reason
}

// WriteFailure reports an atomic write that did not complete after retries.
// The destination still holds its previous content.
type WriteFailure struct {
	Path     string
	Attempts int
	Err      error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("write %s failed after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

// MetadataDegraded reports a side-store that was missing or unreadable and
// has been replaced by its default value.
type MetadataDegraded struct {
	Path string
	Err  error
}

func (e *MetadataDegraded) Error() string {
	return fmt.Sprintf("metadata %s degraded to default: %v", e.Path, e.Err)
}

func (e *MetadataDegraded) Unwrap() error { return e.Err }

// SchemaVersionMismatch reports a store written by a newer schema. The
// recognized fields were still decoded.
type SchemaVersionMismatch struct {
	Path      string
	Found     int
	Supported int
}

func (e *SchemaVersionMismatch) Error() string {
	return fmt.Sprintf("metadata %s has schema version %d, supported up to %d", e.Path, e.Found, e.Supported)
}

// IsRecoverable reports whether err came with a usable fallback value.
func IsRecoverable(err error) bool {
	var pe *ParseError
	var md *MetadataDegraded
	var sv *SchemaVersionMismatch
	return errors.As(err, &pe) || errors.As(err, &md) || errors.As(err, &sv)
}
