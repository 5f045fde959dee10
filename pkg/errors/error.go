// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): Invalid capital, weights, unknown strategies
//   - Data errors (200-299): Missing bars, fetch failures, query failures
//   - Strategy errors (300-399): Signal computation failures
//   - Trading errors (400-499): Rejected orders, insufficient funds or shares
//   - Persistence errors (500-599): Snapshot and trade archival failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInsufficientFunds, "order cost exceeds cash")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to load bars", cause)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeMissingPriceData) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is an error carrying a typed code, a message and an optional
// underlying cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New builds an Error from a code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error from a code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf attaches a code and a formatted message to an underlying cause.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error renders as "[code] message", with the cause appended when one
// is present.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GetCode returns the code of the outermost *Error in the chain, or
// ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether the outermost *Error carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
