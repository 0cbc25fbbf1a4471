package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"syscall"
)

// PkgError is the structured error type for pkgindex.
// It provides rich context for error handling, logging, and user presentation.
type PkgError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_COORDINATE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *PkgError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PkgError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with sentinel PkgErrors.
func (e *PkgError) Is(target error) bool {
	if t, ok := target.(*PkgError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *PkgError) WithDetail(key, value string) *PkgError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *PkgError) WithSuggestion(suggestion string) *PkgError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PkgError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PkgError {
	return &PkgError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PkgError from an existing error.
// The error's message becomes the PkgError message.
func Wrap(code string, err error) *PkgError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel returns a message-less PkgError usable as an errors.Is target.
func Sentinel(code string) *PkgError {
	return New(code, code, nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PkgError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error. The code follows the cause:
// permission and disk-full failures get their own codes, anything else
// reports a missing file.
func IOError(message string, cause error) *PkgError {
	code := ErrCodeFileNotFound
	switch {
	case stderrors.Is(cause, fs.ErrPermission):
		code = ErrCodeFilePermission
	case stderrors.Is(cause, syscall.ENOSPC):
		code = ErrCodeDiskFull
	}
	return New(code, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *PkgError {
	return New(ErrCodeInvalidInput, message, cause)
}

// As finds the first PkgError in err's chain.
func As(err error) (*PkgError, bool) {
	var pe *PkgError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if any PkgError in the chain has the Retryable flag set.
func IsRetryable(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a PkgError.
// Returns empty string if err carries no PkgError.
func GetCode(err error) string {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category from a PkgError.
func GetCategory(err error) Category {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return ""
}
