package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPkgError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("mkdir: permission denied")

	// When: wrapping with PkgError
	pkgErr := New(ErrCodeIndexContextCreation, "cannot create index dir", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, pkgErr)
	assert.Equal(t, originalErr, errors.Unwrap(pkgErr))
	assert.True(t, errors.Is(pkgErr, originalErr))
}

func TestPkgError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "invalid coordinate",
			code:     ErrCodeInvalidCoordinate,
			message:  "bad wheel name",
			expected: "[ERR_401_INVALID_COORDINATE] bad wheel name",
		},
		{
			name:     "unsupported format",
			code:     ErrCodeUnsupportedFormat,
			message:  "no parser for npm",
			expected: "[ERR_102_UNSUPPORTED_FORMAT] no parser for npm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestPkgError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeInvalidCoordinate, "a.zip", nil)
	err2 := New(ErrCodeInvalidCoordinate, "b.egg", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(err1, Sentinel(ErrCodeInvalidCoordinate)))
	assert.False(t, errors.Is(err1, Sentinel(ErrCodeUnsupportedFormat)))
}

func TestPkgError_Is_ThroughFmtWrap(t *testing.T) {
	// Given: a PkgError wrapped by fmt.Errorf
	inner := New(ErrCodeIndexSubmitFailed, "batch failed", nil).WithDetail("page", "2")
	wrapped := fmt.Errorf("run aborted: %w", inner)

	// Then: helpers see through the chain
	assert.True(t, errors.Is(wrapped, Sentinel(ErrCodeIndexSubmitFailed)))
	assert.Equal(t, ErrCodeIndexSubmitFailed, GetCode(wrapped))
	assert.True(t, IsRetryable(wrapped))
	pe, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "2", pe.Details["page"])
}

func TestPkgError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeGroupQueryFailed, "query timed out", nil).
		WithDetail("repository_id", "releases").
		WithDetail("page", "3")

	assert.Equal(t, "releases", err.Details["repository_id"])
	assert.Equal(t, "3", err.Details["page"])
}

func TestPkgError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeUnsupportedFormat, CategoryConfig},
		{ErrCodeIndexContextCreation, CategoryIO},
		{ErrCodeFilePermission, CategoryIO},
		{ErrCodeInvalidCoordinate, CategoryValidation},
		{ErrCodeIndexSubmitFailed, CategoryInternal},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestPkgError_SeverityAndRetryable(t *testing.T) {
	tests := []struct {
		code          string
		wantSeverity  Severity
		wantRetryable bool
	}{
		{ErrCodeUnsupportedFormat, SeverityFatal, false},
		{ErrCodeCorruptIndex, SeverityFatal, false},
		{ErrCodeInvalidCoordinate, SeverityError, false},
		{ErrCodeIndexContextCreation, SeverityError, false},
		{ErrCodeIndexSubmitFailed, SeverityWarning, true},
		{ErrCodeGroupQueryFailed, SeverityWarning, true},
		{ErrCodeDiskFull, SeverityFatal, false},
		{ErrCodeRunCancelled, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestIOError_CodeFollowsCause(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  string
	}{
		{"missing", &os.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, ErrCodeFileNotFound},
		{"permission", &os.PathError{Op: "mkdir", Path: "/x", Err: syscall.EACCES}, ErrCodeFilePermission},
		{"disk full", fmt.Errorf("write: %w", syscall.ENOSPC), ErrCodeDiskFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IOError("failed", tt.cause)
			assert.Equal(t, tt.want, err.Code)
			assert.Equal(t, CategoryIO, err.Category)
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_OnPlainError(t *testing.T) {
	err := errors.New("plain")

	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Empty(t, GetCode(err))
	assert.Empty(t, GetCategory(err))
}
