package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls how often and how patiently a sink write is retried.
// Zero fields take the defaults below. Errors for which Permanent returns
// true end the loop at once; ErrCircuitOpen always does.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Permanent      func(error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

func (cfg RetryConfig) permanent(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	return cfg.Permanent != nil && cfg.Permanent(err)
}

// Retry calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx ends. name labels log lines and the returned error.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Info("recovered", "attempt", attempt)
			}
			return nil
		}
		if cfg.permanent(err) {
			return fmt.Errorf("%s: %w", name, err)
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, err)
		}

		wait := computeDelay(attempt, cfg)
		logger.Warn("attempt failed", "attempt", attempt, "error", err, "backoff", wait)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: giving up after attempt %d: %w", name, attempt, ctx.Err())
		}
	}
}

// computeDelay is exponential backoff with symmetric jitter, capped at
// MaxDelay.
func computeDelay(attempt int, cfg RetryConfig) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	base += base * cfg.JitterFraction * (2*rand.Float64() - 1)
	switch {
	case base > float64(cfg.MaxDelay):
		return cfg.MaxDelay
	case base < 0:
		return cfg.InitialDelay
	}
	return time.Duration(base)
}
