package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	ErrPermission     ErrorCode = "PERMISSION"
	ErrCancelled      ErrorCode = "CANCELLED"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Container errors: corrupt, truncated or unknown archive/document
	// data. Always attributed to a single path; never fails a batch.
	ErrContainerCorrupt  ErrorCode = "CONTAINER_CORRUPT"
	ErrContainerUnknown  ErrorCode = "CONTAINER_UNKNOWN"
	ErrContainerTruncate ErrorCode = "CONTAINER_TRUNCATED"

	// Schema errors: a structured document declares a version newer than
	// this build supports. Hard, user-actionable, never retried.
	ErrSchemaVersion ErrorCode = "SCHEMA_VERSION"

	// Mod and profile errors
	ErrModNotFound     ErrorCode = "MOD_NOT_FOUND"
	ErrModInvalid      ErrorCode = "MOD_INVALID"
	ErrModPlatform     ErrorCode = "MOD_PLATFORM"
	ErrProfileNotFound ErrorCode = "PROFILE_NOT_FOUND"

	// Merge errors
	ErrMergeCompose ErrorCode = "MERGE_COMPOSE"
	ErrDiffInvalid  ErrorCode = "DIFF_INVALID"

	// Sizing errors are never fatal; callers degrade to a heuristic.
	ErrSizeEstimate ErrorCode = "SIZE_ESTIMATE"

	// Deployment errors
	ErrDeployNoConfig ErrorCode = "DEPLOY_NO_CONFIG"
	ErrDeployWrite    ErrorCode = "DEPLOY_WRITE"
	ErrDeployLink     ErrorCode = "DEPLOY_LINK"
	ErrDeploySanity   ErrorCode = "DEPLOY_SANITY"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrFileDelete    ErrorCode = "FILE_DELETE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
)

// StratumError represents a structured error with code and details
type StratumError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *StratumError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *StratumError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *StratumError) Is(target error) bool {
	var targetErr *StratumError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new StratumError with the given code and message
func New(code ErrorCode, message string) *StratumError {
	return &StratumError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new StratumError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *StratumError {
	return &StratumError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a StratumError
func Wrap(err error, code ErrorCode, message string) *StratumError {
	if err == nil {
		return nil
	}
	return &StratumError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *StratumError {
	if err == nil {
		return nil
	}
	return &StratumError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *StratumError) WithDetail(key string, value interface{}) *StratumError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithPath attributes the error to a resource or file path. Batch error
// reports group by this detail.
func (e *StratumError) WithPath(path string) *StratumError {
	return e.WithDetail("path", path)
}

// Path returns the attributed path detail, if any.
func Path(err error) string {
	var se *StratumError
	if errors.As(err, &se) {
		if p, ok := se.Details["path"].(string); ok {
			return p
		}
	}
	return ""
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var se *StratumError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not
// a StratumError
func GetErrorCode(err error) ErrorCode {
	var se *StratumError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrUnknown
}
