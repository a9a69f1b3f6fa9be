package client

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by the dispatcher and the engines built on it.
var (
	// ErrUnknownEndpoint is returned when no descriptor exists for the
	// (module, endpoint) pair.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrUnknownParameter is returned when a caller parameter matches no
	// descriptor allow-list.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrMethodNotAllowed is returned when a method override is not in the
	// descriptor's method list.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrTokenExpired is surfaced only when the automatic refresh after a
	// 401 fails; the dispatcher handles the ordinary expiry internally.
	ErrTokenExpired = errors.New("token expired")

	// ErrRetryExhausted is wrapped into TransportError after the retry
	// budget is spent.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// ErrorClass classifies a failed call for retry policy and metrics.
type ErrorClass string

const (
	// ErrorClassClient covers 4xx responses other than 401/429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer covers the retried 5xx subset (502, 503, 504).
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit covers 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassAuth covers 401 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNetwork covers network-level failures.
	ErrorClassNetwork ErrorClass = "network"
)

// TransportError reports a network-level failure, surfaced after the retry
// budget is exhausted.
type TransportError struct {
	Module   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("qualys: transport error on %s.%s: %v", e.Module, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError reports an error envelope decoded from a 4xx/5xx response body.
type RemoteError struct {
	Module     string
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("qualys: %s.%s returned %d (code %s): %s",
			e.Module, e.Endpoint, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("qualys: %s.%s returned %d: %s",
		e.Module, e.Endpoint, e.StatusCode, e.Message)
}

// RateLimitedError reports an exhausted 429 retry window.
type RateLimitedError struct {
	Module     string
	Endpoint   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("qualys: %s.%s rate limited, retry after %s", e.Module, e.Endpoint, e.RetryAfter)
	}
	return fmt.Sprintf("qualys: %s.%s rate limited", e.Module, e.Endpoint)
}

// classify maps a status code or network error to its retry class.
func classify(statusCode int, netErr error) ErrorClass {
	if netErr != nil {
		return ErrorClassNetwork
	}
	switch {
	case statusCode == 401:
		return ErrorClassAuth
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode == 502 || statusCode == 503 || statusCode == 504:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry reports whether an error class is transient. 401 is handled by
// the single refresh-and-retry path, not the backoff loop.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
