package transport

import "math"

// RetryConfig controls the retrying transport's backoff behaviour for
// transient API errors (RateLimited, Overloaded, Server, Network, Timeout).
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries);
	// total attempts sent is MaxRetries+1.
	MaxRetries int
	// InitialDelayMs is the delay before the first retry.
	InitialDelayMs int64
	// MaxDelayMs caps both the computed and the server-supplied delay.
	MaxDelayMs int64
	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64
}

// DefaultRetryConfig returns the default policy: 2 retries (3 attempts
// total), 1s initial delay, 60s max delay, factor 2.0.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialDelayMs: 1000,
		MaxDelayMs:     60_000,
		BackoffFactor:  2.0,
	}
}

// CalculateDelay returns the delay in milliseconds before the next retry.
// If retryAfterMs is non-nil (from the server's Retry-After header) it is
// used directly, capped by MaxDelayMs. Otherwise the delay is
// InitialDelayMs * BackoffFactor^attempt with +/-25% jitter, clamped to
// MaxDelayMs. attempt is 0-indexed (the first retry is attempt 0).
// random must return a value in [0.75, 1.25]; production callers use
// randomJitter, tests inject a fixed value for determinism.
func CalculateDelay(cfg RetryConfig, attempt int, retryAfterMs *int64, random float64) int64 {
	if retryAfterMs != nil {
		if *retryAfterMs > cfg.MaxDelayMs {
			return cfg.MaxDelayMs
		}
		return *retryAfterMs
	}

	base := float64(cfg.InitialDelayMs) * math.Pow(cfg.BackoffFactor, float64(attempt))
	jittered := base * random
	delay := int64(math.Min(jittered, float64(cfg.MaxDelayMs)))
	return delay
}
