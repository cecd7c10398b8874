// Package errors provides structured error handling for watchsieve.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (flags, config files, patterns)
//   - 2XX: IO errors (watched paths, ignore files)
//   - 4XX: Validation errors
//   - 5XX: Internal errors (publishing, evaluation)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and path errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates runtime errors inside the filter core.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the current startup or reconfiguration must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodePatternInvalid = "ERR_104_PATTERN_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission  = "ERR_202_FILE_PERMISSION"
	ErrCodePathInvalid     = "ERR_206_PATH_INVALID"
	ErrCodeIgnoreDiscovery = "ERR_207_IGNORE_DISCOVERY"
	ErrCodeIgnoreRead      = "ERR_208_IGNORE_READ"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodePublishFailed    = "ERR_506_PUBLISH_FAILED"
	ErrCodeEvaluationFailed = "ERR_507_EVALUATION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
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
	case ErrCodePathInvalid, ErrCodePatternInvalid, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeIgnoreDiscovery, ErrCodePublishFailed:
		// Discovery problems and a torn-down cell never stop the filter.
		return SeverityWarning
	default:
		return SeverityError
	}
}
