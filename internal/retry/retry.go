// Package retry wraps asynchronous operations with bounded retries,
// exponential backoff, and optional fallback paths. Attempt outcomes
// are recorded through the compliance log; the final error always
// reaches the caller.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/jonathan/ae-intake/internal/compliance"
)

// Config controls retry behavior. Zero fields use defaults.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultConfig returns the standard retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

// maxJitter bounds the random delay added to each backoff sleep
const maxJitter = 500 * time.Millisecond

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	return c
}

// Delay returns the backoff delay before retry attempt n (1-based),
// excluding jitter: min(base * multiplier^(n-1), max).
func (c Config) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// WithRetry runs op up to cfg.MaxAttempts times, sleeping with
// exponential backoff plus jitter between attempts. Every failed
// attempt is audited with the given label. After the final attempt the
// last error is returned; retries never swallow a terminal failure.
//
// Retries are unconditional up to the attempt cap; IsRetryable is not
// consulted here.
func WithRetry[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg Config, audit *compliance.Logger, label string) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if audit != nil {
			audit.Log(ctx, compliance.Event{
				Action: "retry_attempt_failed",
				Details: map[string]any{
					"context":      label,
					"attempt":      attempt,
					"max_attempts": cfg.MaxAttempts,
					"error":        err.Error(),
					"retryable":    IsRetryable(err),
				},
			})
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt) + time.Duration(rand.Int63n(int64(maxJitter)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
