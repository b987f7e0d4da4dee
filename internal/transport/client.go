// Package transport implements the retrying HTTP transport used to open a
// streaming connection to the Anthropic Messages API: header construction,
// response-status classification into internal/apierr types, Retry-After
// parsing, and the backoff-and-retry loop around the whole exchange.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kilnhq/relay/internal/apierr"
)

const anthropicVersion = "2023-06-01"

// Client sends requests to the Anthropic Messages API and retries
// transient failures according to its RetryConfig.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
	onRetry    func(errorClass string)
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithHTTPClient overrides the underlying *http.Client (useful for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger overrides the client's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryObserver registers a callback invoked once per retry attempt
// with the error class that triggered it (rate_limited, overloaded,
// server_error, network, timeout), letting callers feed counters without
// this package depending on a metrics library.
func WithRetryObserver(fn func(errorClass string)) Option {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a Client targeting baseURL (e.g. "https://api.anthropic.com")
// authenticating with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 0},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamMessage POSTs body (an already-encoded CreateMessageRequest with
// Stream:true) to /v1/messages and returns the raw streaming response body
// once a non-retryable outcome is reached: either a 200 response ready to
// be fed through internal/sse, or a terminal *apierr error. Transient
// failures are retried up to retry.MaxRetries additional times with
// backoff, honoring the context for cancellation between attempts.
func (c *Client) StreamMessage(ctx context.Context, body []byte) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		resp, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !apierr.Retryable(err) {
			return nil, err
		}
		if attempt == c.retry.MaxRetries {
			return nil, err
		}

		delayMs := CalculateDelay(c.retry, attempt, apierr.RetryAfterMs(err), randomJitter())
		c.logger.Debug("retrying request", "attempt", attempt, "delay_ms", delayMs, "error", err)
		if c.onRetry != nil {
			c.onRetry(apierr.Class(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(delayMs) * time.Millisecond):
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &apierr.NetworkError{Message: err.Error()}
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &apierr.TimeoutError{}
		}
		return nil, &apierr.NetworkError{Message: err.Error()}
	}

	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	retryAfter := ParseRetryAfter(resp.Header.Get("retry-after"))
	return nil, ClassifyError(resp.StatusCode, respBody, retryAfter)
}

// ParseRetryAfter parses a Retry-After header value as a (possibly
// fractional) number of seconds and returns it in milliseconds. Missing or
// unparseable headers return nil.
func ParseRetryAfter(header string) *int64 {
	if header == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return nil
	}
	ms := int64(seconds * 1000)
	return &ms
}

// ClassifyError maps an HTTP error response onto the internal/apierr
// taxonomy, preferring the API's own {"error":{"message":...}} body over
// the raw body text.
func ClassifyError(status int, body []byte, retryAfterMs *int64) error {
	message := extractErrorMessage(body)

	switch status {
	case http.StatusUnauthorized:
		return &apierr.AuthError{Message: message}
	case http.StatusBadRequest:
		return &apierr.BadRequestError{Message: message}
	case http.StatusTooManyRequests:
		return &apierr.RateLimitedError{RetryAfterMs: retryAfterMs}
	case 529:
		return &apierr.OverloadedError{}
	default:
		return &apierr.ServerError{Status: status, Message: message}
	}
}

func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	if len(body) == 0 {
		return ""
	}
	return fmt.Sprintf("%s", body)
}

func randomJitter() float64 {
	return 0.75 + rand.Float64()*0.5 //nolint:gosec // non-cryptographic jitter
}
