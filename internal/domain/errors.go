package domain

import (
	"errors"
	"fmt"
)

// Category sentinels, used with NewDomainError for context-rich errors.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the routing core.
var (
	ErrAgentUnavailable  = fmt.Errorf("agent unavailable")
	ErrAgentFailure      = fmt.Errorf("agent dispatch failed")
	ErrTranslationFailed = fmt.Errorf("translation failed")
	ErrUnroutable        = fmt.Errorf("command could not be routed")
	ErrProviderNotFound  = fmt.Errorf("llm provider not found")
	ErrRateLimit         = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrStoreFailure      = fmt.Errorf("store operation failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Router.Dispatch")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeDuplicate         ErrorCode = "DUPLICATE"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
	CodeAgentUnavailable  ErrorCode = "AGENT_UNAVAILABLE"
	CodeAgentFailure      ErrorCode = "AGENT_FAILURE"
	CodeTranslationFailed ErrorCode = "TRANSLATION_FAILED"
	CodeUnroutable        ErrorCode = "UNROUTABLE"
	CodeProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeStoreFailure      ErrorCode = "STORE_FAILURE"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:          CodeNotFound,
	ErrDuplicate:         CodeDuplicate,
	ErrTimeout:           CodeTimeout,
	ErrInvalidInput:      CodeInvalidInput,
	ErrProviderError:     CodeProviderError,
	ErrAgentUnavailable:  CodeAgentUnavailable,
	ErrAgentFailure:      CodeAgentFailure,
	ErrTranslationFailed: CodeTranslationFailed,
	ErrUnroutable:        CodeUnroutable,
	ErrProviderNotFound:  CodeProviderNotFound,
	ErrRateLimit:         CodeRateLimit,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrStoreFailure:      CodeStoreFailure,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
