package errors

import (
	"fmt"
)

// IndexError is the structured error type for inkdex.
// It carries classification used by the smart-retry path and by the
// coordinator when deciding whether a failure is per-item or job-level.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_201_BACKEND_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Backend, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is matches IndexErrors by code, enabling errors.Is().
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new IndexError with the given code and message.
// Category, severity, and the retryable flag are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an IndexError from an existing error.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// BackendUnavailable creates a retryable backend connectivity error.
func BackendUnavailable(message string, cause error) *IndexError {
	return New(ErrCodeBackendUnavailable, message, cause)
}

// ValidationError creates a non-retryable input validation error.
func ValidationError(message string, cause error) *IndexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// MalformedRequest creates a non-retryable malformed-request error.
// The smart-retry path gives up immediately on these.
func MalformedRequest(message string, cause error) *IndexError {
	return New(ErrCodeMalformedRequest, message, cause)
}

// Cancelled creates an error describing interrupted job processing.
func Cancelled(jobID string) *IndexError {
	e := New(ErrCodeJobCancelled, "indexing job cancelled", nil)
	return e.WithDetail("job_id", jobID)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether an error may succeed on retry.
// Errors that are not IndexErrors are treated as retryable: without
// classification the executor falls back to standard backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ie, ok := err.(*IndexError); ok {
		return ie.Retryable
	}
	return true
}

// IsFatal reports whether an error has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ie, ok := err.(*IndexError); ok {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an IndexError.
// Returns empty string for other error types.
func GetCode(err error) string {
	if ie, ok := err.(*IndexError); ok {
		return ie.Code
	}
	return ""
}
