// Package errors provides structured error handling for inkdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Backend errors (search index, storage)
//   - 3XX: Validation errors
//   - 4XX: Indexing pipeline errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryBackend indicates search backend and storage errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryIndexing indicates indexing pipeline errors.
	CategoryIndexing Category = "INDEXING"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Backend errors (200-299)
	ErrCodeBackendUnavailable = "ERR_201_BACKEND_UNAVAILABLE"
	ErrCodeBackendTimeout     = "ERR_202_BACKEND_TIMEOUT"
	ErrCodeIndexCorrupt       = "ERR_203_INDEX_CORRUPT"
	ErrCodeStorageFull        = "ERR_204_STORAGE_FULL"

	// Validation errors (300-399)
	ErrCodeInvalidInput     = "ERR_301_INVALID_INPUT"
	ErrCodeEmptyItem        = "ERR_302_EMPTY_ITEM"
	ErrCodeMalformedRequest = "ERR_303_MALFORMED_REQUEST"
	ErrCodeInvalidPolicy    = "ERR_304_INVALID_POLICY"

	// Indexing errors (400-499)
	ErrCodeItemIndexFailed = "ERR_401_ITEM_INDEX_FAILED"
	ErrCodeRetryExhausted  = "ERR_402_RETRY_EXHAUSTED"
	ErrCodeJobCancelled    = "ERR_403_JOB_CANCELLED"
	ErrCodeChunkingFailed  = "ERR_404_CHUNKING_FAILED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryBackend
	case '3':
		return CategoryValidation
	case '4':
		return CategoryIndexing
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on the error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt, ErrCodeStorageFull:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether an error code represents a transient
// condition worth retrying. Only backend availability and timeout errors
// qualify; corruption and full storage never recover on their own.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeBackendTimeout:
		return true
	}
	return false
}
