package exa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// RetryConfig defines retry behavior for upstream calls
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []string
}

// DefaultRetryConfig returns the retry policy used when none is configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  250 * time.Millisecond,
		MaxDelay:      4 * time.Second,
		BackoffFactor: 2,
		RetryableErrors: []string{
			"timeout",
			"connection refused",
			"connection reset",
			"temporary failure",
		},
	}
}

// WithRetry executes fn with exponential backoff until it succeeds, fails with a
// non-retryable error, runs out of attempts or ctx is done.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("operation", operation).
					Int("attempt", attempt).
					Msg("operation succeeded after retry")
			}
			return result, nil
		}

		lastErr = err

		if !isRetryable(ctx, err, cfg.RetryableErrors) {
			log.Debug().
				Err(err).
				Str("operation", operation).
				Int("attempt", attempt).
				Msg("non-retryable error, aborting")
			return zero, err
		}

		if attempt == attempts {
			break
		}

		delay := calculateBackoff(attempt, cfg.InitialDelay, cfg.MaxDelay, cfg.BackoffFactor)

		log.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_delay", delay).
			Msg("retrying operation after error")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

// calculateBackoff computes exponential backoff delay with 10% jitter
func calculateBackoff(attempt int, initial, max time.Duration, factor float64) time.Duration {
	if factor < 1 {
		factor = 1
	}
	backoff := float64(initial) * math.Pow(factor, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}

	jitter := backoff * 0.1 * (2*rand.Float64() - 1)
	return time.Duration(backoff + jitter)
}

// isRetryable reports whether err is worth another attempt. Upstream status
// errors decide by code; transport errors fall back to message patterns.
func isRetryable(ctx context.Context, err error, retryableErrors []string) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryableErrors {
		if strings.Contains(errStr, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
