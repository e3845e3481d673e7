package ozonapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// APIError is the base error for all Ozon API failures. It carries the HTTP
// status code (if any) and the decoded response body.
type APIError struct {
	Message  string
	Status   int
	Response map[string]any

	// Err is the underlying cause, if any (network failure, context error).
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("[%d] %s", e.Status, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *APIError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code associated with the error.
// A zero value means the failure happened below the HTTP layer.
func (e *APIError) StatusCode() int {
	return e.Status
}

// AuthError indicates an authentication or authorization failure (401/403),
// including failures to obtain an access token. It is never retried by the
// backoff loop; the transport performs at most one forced token refresh.
type AuthError struct {
	APIError
}

// Unwrap lets errors.As match the embedded *APIError.
func (e *AuthError) Unwrap() error { return &e.APIError }

// RateLimitError indicates the API rejected a request with HTTP 429.
// It surfaces only after the retry budget is exhausted.
type RateLimitError struct {
	APIError
}

// Unwrap lets errors.As match the embedded *APIError.
func (e *RateLimitError) Unwrap() error { return &e.APIError }

// PromotionError is a body-level error reported by the Promotion API, which
// returns HTTP 200 with an error payload instead of a failing status code.
type PromotionError struct {
	Message string
	Code    int
	Details []any
}

func (e *PromotionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("promotion error [%d]: %s", e.Code, e.Message)
	}
	return "promotion error: " + e.Message
}

// ReportFailedError indicates the remote side reported a terminal failure for
// a report job. Distinguishable from ReportTimeoutError so callers can decide
// whether resubmitting makes sense.
type ReportFailedError struct {
	ReportID string
	Reason   string
}

func (e *ReportFailedError) Error() string {
	return fmt.Sprintf("report %s failed: %s", e.ReportID, e.Reason)
}

// ReportTimeoutError indicates the polling budget was exhausted before the
// report job reached a terminal state on the remote side.
type ReportTimeoutError struct {
	ReportID   string
	Attempts   int
	LastStatus string
}

func (e *ReportTimeoutError) Error() string {
	return fmt.Sprintf("report %s not ready after %d attempts (last status: %q)",
		e.ReportID, e.Attempts, e.LastStatus)
}

// ErrorClassifier decides whether a failed attempt is worth retrying.
// Implement it to customize retry behavior for unusual error types.
type ErrorClassifier interface {
	// IsRetryable returns true if the error represents a transient failure.
	IsRetryable(err error) bool
}

// CircuitBreakerErrorClassifier decides whether an error should count against
// the circuit breaker.
type CircuitBreakerErrorClassifier interface {
	// ShouldTripCircuit returns true if the error indicates the downstream
	// service itself is unhealthy.
	ShouldTripCircuit(err error) bool
}

// HTTPStatusClassifier classifies errors by HTTP status code. The zero value
// uses the defaults: 429 and 5xx are retryable; 401, 403, and 5xx count
// against the circuit breaker.
type HTTPStatusClassifier struct {
	// RetryableStatuses overrides the set of status codes that trigger retries.
	RetryableStatuses []int

	// CircuitTripStatuses overrides the set of status codes that trip the breaker.
	CircuitTripStatuses []int
}

// NewHTTPStatusClassifier returns a classifier with the default status sets.
func NewHTTPStatusClassifier() *HTTPStatusClassifier {
	return &HTTPStatusClassifier{}
}

// IsRetryable implements ErrorClassifier.
//
// Context cancellation is never retryable: retrying with the same context
// fails immediately. Errors with no status code are treated as network-level
// failures and retried.
func (c *HTTPStatusClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return true
	}
	if pkgerrors.IsTimeout(err) {
		return true
	}

	// Recovery from an open circuit is governed by the breaker's timeout,
	// not the retry loop.
	if errors.Is(err, pkgerrors.ErrCircuitOpen) || errors.Is(err, pkgerrors.ErrCircuitHalfOpen) {
		return false
	}

	status := extractStatusCode(err)
	if status == 0 {
		return true
	}

	if c.RetryableStatuses != nil {
		return containsStatus(c.RetryableStatuses, status)
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier.
//
// Rate limits and timeouts are transient and do not trip the circuit.
func (c *HTTPStatusClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if pkgerrors.IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	status := extractStatusCode(err)
	if status == 0 {
		return true
	}

	if c.CircuitTripStatuses != nil {
		return containsStatus(c.CircuitTripStatuses, status)
	}
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status >= 500
}

// extractStatusCode pulls an HTTP status code out of an error chain.
func extractStatusCode(err error) int {
	type httpStatusProvider interface {
		StatusCode() int
	}
	var provider httpStatusProvider
	if errors.As(err, &provider) {
		return provider.StatusCode()
	}
	return 0
}

func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
