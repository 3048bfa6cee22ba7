package search

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

// RetryConfig controls how RetryWithBackoff paces repeated attempts
// against a flaky tracker.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig is tuned for interactive searches: three attempts
// with sub-second initial delay keeps the worst case under the search
// timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryWithBackoff runs fn until it succeeds, a permanent error occurs, or
// the attempts run out. Delays grow by Multiplier with ±25% jitter so a
// burst of searches does not stampede a recovering source. Only
// network-shaped failures are retried; auth and parse failures return at
// once.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransientError(lastErr) || attempt == attempts {
			return lastErr
		}

		if err := sleepWithJitter(ctx, delay, cfg.MaxDelay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

func sleepWithJitter(ctx context.Context, delay, maxDelay time.Duration) error {
	// Spread into [0.75d, 1.25d).
	jittered := time.Duration(float64(delay) * (0.75 + rand.Float64()*0.5))
	if jittered > maxDelay {
		jittered = maxDelay
	}
	timer := time.NewTimer(jittered)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransientError reports whether a source failure may clear up on its
// own: timeouts, resets, truncated bodies, TLS hiccups.
func isTransientError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "deadline exceeded",
		"connection reset", "connection refused",
		"tls", "eof",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
