// Package apierr defines the provider-facing error taxonomy: which classes
// are retryable by the transport layer and which are terminal.
package apierr

import "fmt"

// AuthError is a 401 response. Terminal.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %s", e.Message) }

// BadRequestError is a 400 response. Terminal.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.Message) }

// RateLimitedError is a 429 response. Retryable.
type RateLimitedError struct {
	RetryAfterMs *int64
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfterMs != nil {
		return fmt.Sprintf("rate limited (retry after %dms)", *e.RetryAfterMs)
	}
	return "rate limited"
}

// OverloadedError is a 529 response. Retryable.
type OverloadedError struct{}

func (e *OverloadedError) Error() string { return "server overloaded" }

// ServerError is any other 5xx response. Retryable.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return fmt.Sprintf("server error: %d %s", e.Status, e.Message) }

// NetworkError wraps a transport-level failure (connection refused, DNS,
// reset, etc). Retryable.
type NetworkError struct {
	Message string
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %s", e.Message) }

// TimeoutError is a request timeout. Retryable.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "request timeout" }

// StreamParseError is a malformed SSE/JSON event on an otherwise successful
// stream. Terminal — the stream is unrecoverable.
type StreamParseError struct {
	Message string
}

func (e *StreamParseError) Error() string { return fmt.Sprintf("stream parse error: %s", e.Message) }

// Retryable reports whether err belongs to a retryable error class. Unknown
// error types (not produced by this package) are treated as non-retryable.
func Retryable(err error) bool {
	switch err.(type) {
	case *RateLimitedError, *OverloadedError, *ServerError, *NetworkError, *TimeoutError:
		return true
	default:
		return false
	}
}

// RetryAfterMs extracts a server-supplied retry delay, if any.
func RetryAfterMs(err error) *int64 {
	if rl, ok := err.(*RateLimitedError); ok {
		return rl.RetryAfterMs
	}
	return nil
}

// Class labels err with a short, stable tag suitable for a metrics label.
// Only the retryable error types get their own tag; every other error,
// including AuthError, BadRequestError and StreamParseError, reports
// "unknown".
func Class(err error) string {
	switch err.(type) {
	case *RateLimitedError:
		return "rate_limited"
	case *OverloadedError:
		return "overloaded"
	case *ServerError:
		return "server_error"
	case *NetworkError:
		return "network"
	case *TimeoutError:
		return "timeout"
	default:
		return "unknown"
	}
}
