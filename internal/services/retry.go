package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-retry"

	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// withRetry runs op with exponential backoff on transient service errors,
// bounded by the configured attempt budget. Terminal errors abort
// immediately. Retries are local to one chunk and one stage.
func withRetry[T any](ctx context.Context, logCtx *slog.Logger, stage string, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts < 1 {
		cfg = DefaultRetryConfig()
	}
	var out T
	backoff := retry.WithMaxRetries(uint64(cfg.MaxAttempts-1), retry.NewExponential(cfg.InitialBackoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := op(ctx)
		if err != nil {
			if models.IsTransient(err) {
				logCtx.Warn("Transient service error, will retry.",
					"stage", stage, "attempt", attempt, "maxAttempts", cfg.MaxAttempts, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s failed after %d attempt(s): %w", stage, attempt, err)
	}
	return out, nil
}
