package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesClassificationFromCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{"config invalid", ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{"backend unavailable", ErrCodeBackendUnavailable, CategoryBackend, SeverityWarning, true},
		{"backend timeout", ErrCodeBackendTimeout, CategoryBackend, SeverityWarning, true},
		{"index corrupt", ErrCodeIndexCorrupt, CategoryBackend, SeverityFatal, false},
		{"malformed request", ErrCodeMalformedRequest, CategoryValidation, SeverityError, false},
		{"retry exhausted", ErrCodeRetryExhausted, CategoryIndexing, SeverityError, false},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)

			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestIndexError_ErrorFormat(t *testing.T) {
	err := New(ErrCodeItemIndexFailed, "item could not be indexed", nil)

	assert.Equal(t, "[ERR_401_ITEM_INDEX_FAILED] item could not be indexed", err.Error())
}

func TestIndexError_UnwrapChain(t *testing.T) {
	// Given: a wrapped underlying error
	cause := stderrors.New("connection refused")
	err := BackendUnavailable("backend unreachable", cause)

	// Then: errors.Is finds the cause through the chain
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(fmt.Errorf("outer: %w", err), err))
}

func TestIndexError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeJobCancelled, "first", nil)
	b := New(ErrCodeJobCancelled, "second", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, New(ErrCodeInternal, "other", nil)))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	var wrapped *IndexError = Wrap(ErrCodeInternal, nil)
	assert.Nil(t, wrapped)
}

func TestIsRetryable(t *testing.T) {
	// Classified errors follow their code.
	assert.True(t, IsRetryable(BackendUnavailable("down", nil)))
	assert.False(t, IsRetryable(MalformedRequest("bad payload", nil)))

	// Unclassified errors default to retryable so the executor
	// falls back to standard backoff.
	assert.True(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeStorageFull, "disk full", nil)))
	assert.False(t, IsFatal(BackendUnavailable("down", nil)))
	assert.False(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestCancelled_CarriesJobID(t *testing.T) {
	err := Cancelled("job-42")

	require.NotNil(t, err.Details)
	assert.Equal(t, "job-42", err.Details["job_id"])
	assert.Equal(t, CategoryIndexing, err.Category)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeEmptyItem, GetCode(New(ErrCodeEmptyItem, "empty", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}
