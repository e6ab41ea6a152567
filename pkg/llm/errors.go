package llm

import (
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeBadRequest  ErrorType = "bad_request"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a structured LLM provider error with retryability classification.
type Error struct {
	Type      ErrorType
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError wraps a raw provider error into a typed *Error.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	e := &Error{Message: err.Error(), Cause: err}

	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized"):
		e.Type = ErrorTypeAuth
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		e.Type = ErrorTypeRateLimit
		e.Retryable = true
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded"):
		e.Type = ErrorTypeTimeout
		e.Retryable = true
	case strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504") ||
		strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded"):
		e.Type = ErrorTypeUnavailable
		e.Retryable = true
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid request"):
		e.Type = ErrorTypeBadRequest
	default:
		e.Type = ErrorTypeUnknown
	}

	return e
}
