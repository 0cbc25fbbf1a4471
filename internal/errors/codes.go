// Package errors provides structured error handling for pkgindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index directories)
//   - 4XX: Validation errors (coordinates, input)
//   - 5XX: Internal and collaborator errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound    = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeUnsupportedFormat = "ERR_102_UNSUPPORTED_FORMAT"
	ErrCodeConfigInvalid     = "ERR_103_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound         = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission       = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull             = "ERR_203_DISK_FULL"
	ErrCodeCorruptIndex         = "ERR_205_CORRUPT_INDEX"
	ErrCodeIndexLocked          = "ERR_206_INDEX_LOCKED"
	ErrCodeIndexContextCreation = "ERR_207_INDEX_CONTEXT_CREATION"

	// Validation errors (400-499)
	ErrCodeInvalidCoordinate = "ERR_401_INVALID_COORDINATE"
	ErrCodeInvalidInput      = "ERR_402_INVALID_INPUT"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeStorageFailed     = "ERR_502_STORAGE_FAILED"
	ErrCodeGroupQueryFailed  = "ERR_503_GROUP_QUERY_FAILED"
	ErrCodeSearchFailed      = "ERR_504_SEARCH_FAILED"
	ErrCodeIndexSubmitFailed = "ERR_505_INDEX_SUBMIT_FAILED"
	ErrCodeRunCancelled      = "ERR_506_RUN_CANCELLED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull, ErrCodeUnsupportedFormat:
		return SeverityFatal
	}

	// Retryable errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Index runs are retried from scratch by the caller, never resumed.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeIndexLocked, ErrCodeGroupQueryFailed, ErrCodeIndexSubmitFailed:
		return true
	default:
		return false
	}
}
