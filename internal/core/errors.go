package core

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// KindUnauthorized indicates a bad or expired credential (401).
	KindUnauthorized ErrorKind = "unauthorized"
	// KindQuotaExceeded indicates the upstream call quota is exhausted.
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	// KindForbidden indicates an access denial other than quota exhaustion.
	KindForbidden ErrorKind = "forbidden"
	// KindNotFound indicates the requested resource does not exist (404).
	KindNotFound ErrorKind = "not_found"
	// KindNetworkFailure indicates a transport-level failure; transient.
	KindNetworkFailure ErrorKind = "network_failure"
	// KindUpstreamError indicates an unexpected upstream status.
	KindUpstreamError ErrorKind = "upstream_error"
	// KindPartialData indicates a sub-fetch inside a fan-out failed and its
	// field was filled with a zero default.
	KindPartialData ErrorKind = "partial_data_unavailable"
)

// PipelineError is the typed error for all acquisition failures.
type PipelineError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	// ResetAt is set for quota errors so callers know when to come back.
	ResetAt time.Time `json:"reset_at,omitzero"`
	// Original error for debugging, not exposed to clients.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may reasonably retry the operation.
// Quota errors are never retried before the reset time.
func (e *PipelineError) Retryable() bool {
	return e.Kind == KindNetworkFailure
}

// HTTPStatusCode returns the status the serving layer should respond with.
func (e *PipelineError) HTTPStatusCode() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNetworkFailure, KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewUnauthorizedError creates an error for a rejected credential.
func NewUnauthorizedError(message string) *PipelineError {
	return &PipelineError{
		Kind:       KindUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewQuotaExceededError creates an error for an exhausted quota, carrying
// the time at which the quota window resets.
func NewQuotaExceededError(resetAt time.Time) *PipelineError {
	return &PipelineError{
		Kind:       KindQuotaExceeded,
		Message:    fmt.Sprintf("API quota exhausted, resets at %s", resetAt.UTC().Format(time.RFC3339)),
		StatusCode: http.StatusForbidden,
		ResetAt:    resetAt,
	}
}

// NewForbiddenError creates an error for a non-quota access denial.
func NewForbiddenError(message string) *PipelineError {
	return &PipelineError{
		Kind:       KindForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates an error for a missing upstream resource.
func NewNotFoundError(resource string) *PipelineError {
	return &PipelineError{
		Kind:       KindNotFound,
		Message:    resource + " not found",
		StatusCode: http.StatusNotFound,
	}
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(err error) *PipelineError {
	return &PipelineError{
		Kind:    KindNetworkFailure,
		Message: "upstream request failed: " + err.Error(),
		Err:     err,
	}
}

// NewUpstreamError creates an error for an unexpected upstream status.
func NewUpstreamError(statusCode int, body string) *PipelineError {
	return &PipelineError{
		Kind:       KindUpstreamError,
		Message:    fmt.Sprintf("unexpected upstream status %d: %s", statusCode, body),
		StatusCode: statusCode,
	}
}

// NewPartialDataError marks a sub-fetch failure inside a fan-out.
func NewPartialDataError(part string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindPartialData,
		Message: part + " unavailable",
		Err:     err,
	}
}

// AsPipelineError extracts a *PipelineError from an error chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Kind == kind
}
