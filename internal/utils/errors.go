package utils

import (
	"fmt"

	"github.com/dl-alexandre/driveshelf/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired      = 10
	ExitAuthExpired       = 11
	ExitAuthInvalid       = 12
	ExitScopeInsufficient = 13
	// File operation errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	ExitCacheWriteFailed = 26
	// Network errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	ExitRateLimited  = 32
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidConfig   = 44
	// Interrupted by SIGINT/SIGTERM
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired      = "AUTH_REQUIRED"
	ErrCodeAuthExpired       = "AUTH_EXPIRED"
	ErrCodeAuthInvalid       = "AUTH_INVALID"
	ErrCodeScopeInsufficient = "SCOPE_INSUFFICIENT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodePermissionDenied  = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	ErrCodeNetworkError      = "NETWORK_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeInvalidEncoding   = "INVALID_ENCODING"
	ErrCodeContentTooLarge   = "CONTENT_TOO_LARGE"
	ErrCodePolicyViolation   = "POLICY_VIOLATION"
	ErrCodeCacheWriteFailed  = "CACHE_WRITE_FAILED"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeUnknown           = "UNKNOWN"
)

// Warning codes attached to a successful sync envelope
const (
	ErrCodeListingIncomplete = "LISTING_INCOMPLETE"
	ErrCodeSummaryUnreadable = "SUMMARY_UNREADABLE"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:      ExitAuthRequired,
		ErrCodeAuthExpired:       ExitAuthExpired,
		ErrCodeAuthInvalid:       ExitAuthInvalid,
		ErrCodeScopeInsufficient: ExitScopeInsufficient,
		ErrCodeFileNotFound:      ExitFileNotFound,
		ErrCodePermissionDenied:  ExitPermissionDenied,
		ErrCodeQuotaExceeded:     ExitQuotaExceeded,
		ErrCodeCacheWriteFailed:  ExitCacheWriteFailed,
		ErrCodeNetworkError:      ExitNetworkError,
		ErrCodeTimeout:           ExitTimeout,
		ErrCodeRateLimited:       ExitRateLimited,
		ErrCodeInvalidArgument:   ExitInvalidArgument,
		ErrCodeInvalidConfig:     ExitInvalidConfig,
		ErrCodeCancelled:         ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// Unwrap exposes the underlying error, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps cause reachable via errors.Is/As
func WrapAppError(cliErr types.CLIError, cause error) *AppError {
	return &AppError{CLIError: cliErr, cause: cause}
}
