// Package errors provides structured error types for the TowerBlocks optimizer.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - UNREACHABLE*: Feasibility verdicts from the oracle
//   - CACHE_*/STORE_*: Persistence failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "bad tier value at (%d,%d)", r, c)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCache, origErr, "read best-known entry %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidTable  Code = "INVALID_SCORE_TABLE"
	ErrCodeInvalidMode   Code = "INVALID_MODE"
	ErrCodeInvalidPlan   Code = "INVALID_PLAN"

	// Feasibility verdicts. StructurallyUnreachable and CyclicDependency are
	// refinements of Unreachable with a diagnosable cause. Undecided means the
	// oracle ran out of constructive strategies without a proof either way; a
	// larger exhaustive budget may still decide the board. All four satisfy
	// IsUnreachable.
	ErrCodeUnreachable             Code = "UNREACHABLE"
	ErrCodeStructurallyUnreachable Code = "STRUCTURALLY_UNREACHABLE"
	ErrCodeCyclicDependency        Code = "CYCLIC_DEPENDENCY"
	ErrCodeUndecided               Code = "UNDECIDED"

	// Persistence errors
	ErrCodeCache Code = "CACHE_ERROR"
	ErrCodeStore Code = "STORE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
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
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnreachable reports whether err is any flavor of feasibility rejection:
// plain unreachable, structurally unreachable, a proven cyclic dependency, or
// an undecided give-up. The search loop uses this to reject a candidate and
// continue rather than abort.
func IsUnreachable(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnreachable, ErrCodeStructurallyUnreachable, ErrCodeCyclicDependency, ErrCodeUndecided:
		return true
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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
