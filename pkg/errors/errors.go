// Package errors provides structured error types for the flowlayout engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI, and HTTP service
//   - Machine-readable error codes for programmatic handling
//   - Stage tagging for failures that happen inside the layout pipeline
//   - Error wrapping with context preservation
//
// # Error Classes
//
// The engine distinguishes a small set of error classes:
//   - VALIDATION_ERROR: the graph is malformed (no nodes, bad ids). Fatal, and
//     always raised before any position is written.
//   - STAGE_ERROR: a named pipeline stage failed. Fatal for the run, never
//     retried automatically. [Error.Stage] names the stage.
//   - LOCK_TIMEOUT: the preview lock could not be acquired in time. Reported
//     as a warning; the run proceeds.
//   - CACHE_ERROR: the layout cache failed. Never fatal, treated as a miss.
//
// # Usage
//
//	err := errors.Validation("graph has no layoutable nodes")
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // Handle validation error
//	}
//
//	// Tag a failure with the stage it happened in
//	err := errors.Stage("positioning", cause)
//	stage := errors.StageOf(err) // "positioning"
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the engine error classes.
const (
	ErrCodeValidation       Code = "VALIDATION_ERROR"
	ErrCodeStage            Code = "STAGE_ERROR"
	ErrCodeLockTimeout      Code = "LOCK_TIMEOUT"
	ErrCodeCache            Code = "CACHE_ERROR"
	ErrCodeAlreadyExecuting Code = "ALREADY_EXECUTING"
	ErrCodeCancelled        Code = "CANCELLED"
	ErrCodeDisposed         Code = "DISPOSED"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeRateLimited      Code = "RATE_LIMITED"
	ErrCodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, an optional pipeline stage, and an
// optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Stage   string // Pipeline stage the error originated in (optional)
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Stage != "" {
		prefix += "[" + e.Stage + "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
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

// Validation creates a VALIDATION_ERROR.
func Validation(format string, args ...any) *Error {
	return New(ErrCodeValidation, format, args...)
}

// Stage creates a STAGE_ERROR tagged with the failing stage.
// If cause already carries a stage, the original stage is kept so that
// nested wrapping never hides where the failure started.
func Stage(stage string, cause error) *Error {
	if s := StageOf(cause); s != "" {
		stage = s
	}
	msg := "stage failed"
	if cause != nil {
		msg = "stage " + stage + " failed"
	}
	return &Error{
		Code:    ErrCodeStage,
		Stage:   stage,
		Message: msg,
		Cause:   cause,
	}
}

// LockTimeout creates a LOCK_TIMEOUT error for the given lock id.
func LockTimeout(lockID string, cause error) *Error {
	return Wrap(ErrCodeLockTimeout, cause, "lock %q not acquired in time", lockID)
}

// CacheFailure creates a CACHE_ERROR for a failed cache operation.
func CacheFailure(op string, cause error) *Error {
	return Wrap(ErrCodeCache, cause, "cache %s failed", op)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
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

// StageOf returns the innermost pipeline stage recorded in the error chain,
// or the empty string.
func StageOf(err error) string {
	stage := ""
	var e *Error
	for err != nil && errors.As(err, &e) {
		if e.Stage != "" {
			stage = e.Stage
		}
		err = e.Cause
	}
	return stage
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether an error class aborts a layout run.
// Lock timeouts and cache failures are degraded conditions, not failures.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeLockTimeout, ErrCodeCache:
		return false
	default:
		return err != nil
	}
}

// RateLimitedError is returned by the HTTP service when a client exceeds its
// request budget.
type RateLimitedError struct {
	RetryAfter int // Seconds until the client may retry (0 if unknown)
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns ErrCodeRateLimited.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
