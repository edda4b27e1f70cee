package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeAuth         = "AUTH_ERROR"
	ErrCodeTransport    = "TRANSPORT_ERROR"
	ErrCodeJobFailed    = "JOB_FAILED"
	ErrCodePollDeadline = "POLL_DEADLINE"
	ErrCodeBusy         = "RUN_IN_PROGRESS"
	ErrCodeNoData       = "NO_DATA"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// Completion provider error codes.
	ErrCodeLLMFailure     = "LLM_API_ERROR"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"

	// Profile store error codes.
	ErrCodeBuiltInProfile  = "BUILT_IN_PROFILE"
	ErrCodeProfileNotFound = "PROFILE_NOT_FOUND"
)

// Phases name the external-call boundary an error came from.
const (
	PhaseSubmit  = "submit"
	PhasePoll    = "poll"
	PhaseFetch   = "fetch"
	PhaseAnalyze = "analyze"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

// Error is the internal error type carrying an error code.
// JobStatus is set for JOB_FAILED, StatusCode for provider HTTP failures.
type Error struct {
	Code       string
	Phase      string
	Message    string
	JobStatus  JobStatus
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	prefix := e.Code
	if e.Phase != "" {
		prefix = e.Code + " (" + e.Phase + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *Error) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message, Phase: e.Phase}
}

// NewError creates a new Error.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NewValidationError reports missing or malformed caller input.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewAuthError reports credentials that are empty or rejected by a provider.
func NewAuthError(phase, message string) *Error {
	return &Error{Code: ErrCodeAuth, Phase: phase, Message: message}
}

// NewTransportError wraps a network failure or unexpected non-2xx response.
func NewTransportError(phase, message string, statusCode int, err error) *Error {
	return &Error{Code: ErrCodeTransport, Phase: phase, Message: message, StatusCode: statusCode, Err: err}
}

// NewJobFailedError reports a job that reached a non-success terminal status.
func NewJobFailedError(status JobStatus) *Error {
	return &Error{
		Code:      ErrCodeJobFailed,
		Phase:     PhasePoll,
		Message:   fmt.Sprintf("scraping job finished with status %s", status),
		JobStatus: status,
	}
}

// NewAPIError reports an error payload returned by the completion endpoint.
func NewAPIError(code string, statusCode int, message string) *Error {
	return &Error{Code: code, Phase: PhaseAnalyze, Message: message, StatusCode: statusCode}
}

// AsError extracts an *Error from err, wrapping unknown errors as INTERNAL_ERROR.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrCodeInternal, err.Error(), err)
}

// CodeOf returns the code of err, or "" when err is nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
