package errors

import (
	stderrors "errors"
	"fmt"
)

// SieveError is the structured error type for watchsieve.
// It provides context for error handling, logging, and user presentation.
type SieveError struct {
	// Code is the unique error code (e.g., "ERR_206_PATH_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SieveError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SieveError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SieveError.
func (e *SieveError) Is(target error) bool {
	if t, ok := target.(*SieveError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SieveError) WithDetail(key, value string) *SieveError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SieveError) WithSuggestion(suggestion string) *SieveError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SieveError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *SieveError {
	return &SieveError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a SieveError from an existing error.
// The error's message becomes the SieveError message.
func Wrap(code string, err error) *SieveError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SieveError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// PathError creates an error for a watched path that cannot be canonicalized.
func PathError(path string, cause error) *SieveError {
	return New(ErrCodePathInvalid, fmt.Sprintf("cannot resolve path %q", path), cause).
		WithDetail("path", path).
		WithSuggestion("Check that the path exists and is readable")
}

// PatternError creates an error for a glob pattern that failed to parse.
func PatternError(pattern string, cause error) *SieveError {
	return New(ErrCodePatternInvalid, fmt.Sprintf("invalid pattern %q", pattern), cause).
		WithDetail("pattern", pattern)
}

// DiscoveryError creates a non-fatal error for an ignore file that could not be discovered or read.
func DiscoveryError(path string, cause error) *SieveError {
	return New(ErrCodeIgnoreDiscovery, fmt.Sprintf("ignore file %q skipped", path), cause).
		WithDetail("path", path)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SieveError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SieveError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current startup or reconfiguration.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := As(err); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// As finds the first SieveError in err's chain.
func As(err error) (*SieveError, bool) {
	var se *SieveError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// GetCode extracts the error code from the first SieveError in err's chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from the first SieveError in err's chain.
// Returns empty string if there is none.
func GetCategory(err error) Category {
	if se, ok := As(err); ok {
		return se.Category
	}
	return ""
}
