package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRateLimited is returned when the local rate limiter rejects a
	// request. It is a normal admission outcome, not an upstream fault,
	// and never counts against the circuit breaker.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen is returned while the circuit breaker rejects
	// requests during its cooldown.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottle represents 429 upstream throttling.
	ErrorClassThrottle ErrorClass = "throttle"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents an upstream catalog API fault with additional context.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("catalog %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottle
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classify derives the error class used for retry decisions. Admission
// rejections carry no class: they are never retried, the caller's own
// backoff owns that budget.
func classify(err error) ErrorClass {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCircuitOpen) {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}

	return ErrorClassNetwork
}

// shouldRetry determines if an error class warrants another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// 4xx errors are deterministic; retrying wastes quota.
		return false
	case ErrorClassServer:
		// 5xx server errors are worth retrying.
		return true
	case ErrorClassThrottle:
		// 429 clears once the upstream window rolls.
		return true
	case ErrorClassNetwork:
		// Transient connectivity issues are worth retrying.
		return true
	default:
		return false
	}
}
