// Package errors provides structured error types for Bubbleflow.
//
// Errors carry a machine-readable [Code] so callers (CLI, HTTP server,
// interaction controller) can tell the three failure kinds apart:
//
//   - Configuration errors (INVALID_CONFIG, UNKNOWN_*): fatal at load time
//   - Data validation errors (INVALID_DATA): aggregated, see [ValidationError]
//   - Request errors (INVALID_INPUT, NOT_FOUND): bad interaction parameters
//
// Degenerate inputs (no entities, no flows, constant values) are never errors.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownMetric, "view %q does not support metric %q", view, metric)
//	if errors.Is(err, errors.ErrCodeUnknownMetric) {
//	    // reject the request
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeUnknownView     Code = "UNKNOWN_VIEW"
	ErrCodeUnknownMetric   Code = "UNKNOWN_METRIC"
	ErrCodeUnknownFlowType Code = "UNKNOWN_FLOW_TYPE"

	// Input errors
	ErrCodeInvalidData  Code = "INVALID_DATA"
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// A *ValidationError matches ErrCodeInvalidData.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return ErrCodeInvalidData
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

// IsConfig reports whether err is a configuration error. Configuration errors
// abort pipeline construction rather than failing a single recomputation.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidConfig, ErrCodeUnknownView, ErrCodeUnknownMetric, ErrCodeUnknownFlowType:
		return true
	}
	return false
}
