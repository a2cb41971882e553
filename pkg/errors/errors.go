// Package errors provides structured error types for stackpm.
//
// Every failure that crosses a pipeline stage boundary carries a [Code] so
// the CLI (and tests) can tell a resolution failure from a broken archive
// without matching on message text.
//
// # Error Codes
//
//   - RESOLUTION_FAILED: no published version satisfies a requested range
//   - FETCH_FAILED: HTTP failure, non-success status or timeout after all retries
//   - ARCHIVE_INVALID: malformed compression or a missing archive entry
//   - LINK_FAILED: a lifecycle script exited nonzero or could not be spawned
//   - PRECONDITION_FAILED: the fetcher was handed an unpinned reference
//   - INVALID_MANIFEST, INVALID_CONFIG, INVALID_PACKAGE: input validation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeResolution, "no version of %s matches %s", name, rng)
//	if errors.Is(err, errors.ErrCodeResolution) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodeFetch, cause, "fetch %s@%s", name, version)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Pipeline error codes.
const (
	ErrCodeResolution   Code = "RESOLUTION_FAILED"
	ErrCodeFetch        Code = "FETCH_FAILED"
	ErrCodeArchive      Code = "ARCHIVE_INVALID"
	ErrCodeLink         Code = "LINK_FAILED"
	ErrCodePrecondition Code = "PRECONDITION_FAILED"

	// Input validation errors
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message, names the offending package
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Only the outermost *Error is consulted, so a LINK_FAILED error caused by
// a FETCH_FAILED one reports LINK_FAILED.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types the code prefix is dropped and the cause, if any, is
// appended. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
