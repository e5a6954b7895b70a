package retry

import (
	"context"

	"github.com/jonathan/ae-intake/internal/compliance"
)

// NewFallbackHandler returns a callable that attempts primary and, if
// it fails, runs fallback. Each failure is audited distinctly. When
// both fail, the fallback's error is returned, not the primary's.
// Exactly one of primary result, fallback result, or fallback error is
// the outcome.
func NewFallbackHandler[T any](primary, fallback func(ctx context.Context) (T, error), audit *compliance.Logger, label string) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		result, primaryErr := primary(ctx)
		if primaryErr == nil {
			return result, nil
		}

		if audit != nil {
			audit.Log(ctx, compliance.Event{
				Action: "fallback_primary_failed",
				Details: map[string]any{
					"context":   label,
					"error":     primaryErr.Error(),
					"retryable": IsRetryable(primaryErr),
				},
			})
		}

		result, fallbackErr := fallback(ctx)
		if fallbackErr == nil {
			return result, nil
		}

		if audit != nil {
			audit.Log(ctx, compliance.Event{
				Action: "fallback_failed",
				Details: map[string]any{
					"context":       label,
					"error":         fallbackErr.Error(),
					"primary_error": primaryErr.Error(),
				},
			})
		}

		var zero T
		return zero, fallbackErr
	}
}
