// Package retry re-runs flaky startup steps, such as launching Chrome, with
// exponential backoff. Portal operations are never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts    int           // Maximum number of attempts, including the first
	InitialBackoff time.Duration // Backoff after the first failure
	MaxBackoff     time.Duration // Backoff cap
	Multiplier     float64       // Backoff multiplier
}

// DefaultConfig returns the launch retry policy
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, ctx is done or
// the attempts run out. attempt starts at 1.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.Debug().Int("attempts", attempt).Msg("Retry succeeded")
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := Backoff(attempt, cfg)
		log.Debug().
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying after backoff")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	log.Warn().
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Max retry attempts exceeded")

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Backoff returns the wait after the given failed attempt (1-based).
func Backoff(attempt int, cfg Config) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}
