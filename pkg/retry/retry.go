// Package retry provides exponential-backoff retry for transient failures,
// with typed retryability classification and checkpointing of partial output.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxAttempts  int           // Total attempts including the first (default: 3)
	InitialDelay time.Duration // Delay before the first retry (default: 1s)
	Multiplier   float64       // Delay multiplier per retry (default: 2.0)
	MaxDelay     time.Duration // Upper bound for the delay (default: 10s)
	JitterFactor float64       // 0.0-1.0, +/- jitter to prevent thundering herd

	// IsRetryable overrides the default classification when set.
	IsRetryable func(error) bool
}

// DefaultConfig returns sensible defaults for AI provider calls.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}
}

// Result reports the outcome of a retried operation.
type Result[T any] struct {
	Success   bool
	Data      T
	Err       error
	Attempts  int
	TotalTime time.Duration
}

// Do executes fn with exponential backoff until it succeeds, a non-retryable
// error occurs, attempts are exhausted, or ctx is done. Delays start at
// InitialDelay and are multiplied by Multiplier each retry, capped at
// MaxDelay.
func Do[T any](ctx context.Context, cfg *Config, fn func(ctx context.Context) (T, error)) Result[T] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	isRetryable := cfg.IsRetryable
	if isRetryable == nil {
		isRetryable = IsRetryable
	}

	start := time.Now()
	delay := cfg.InitialDelay

	var result Result[T]
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		data, err := fn(ctx)
		result.Attempts = attempt
		if err == nil {
			result.Success = true
			result.Data = data
			result.TotalTime = time.Since(start)
			return result
		}

		result.Err = err
		result.Data = data // keep last output even on error

		// Permanent failures stop immediately
		if !isRetryable(err) {
			break
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(applyJitter(delay, cfg.JitterFactor)):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			result.Err = ctx.Err()
			result.TotalTime = time.Since(start)
			return result
		}
	}

	result.TotalTime = time.Since(start)
	return result
}

// applyJitter adds random jitter to a delay to prevent thundering herd.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// RetryableError is an interface for errors that explicitly declare their
// retryability. LLM errors implement this so classification does not depend
// on message strings.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable determines if an error is transient and worth retrying.
//
// The function checks errors in this order:
//  1. If the error implements RetryableError, use its IsRetryable() method
//  2. Otherwise, pattern-match against known retryable error strings
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		// Connection errors
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
		// HTTP status codes
		"429",
		"502",
		"503",
		"504",
		// Provider wording
		"rate limit",
		"quota exceeded",
		"too many requests",
		"service unavailable",
		"overloaded",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
