package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familyalbum/pkg/config"
	errs "familyalbum/pkg/errors"
	"familyalbum/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts; values below 1 mean a single attempt
	MaxAttempts int
	Backoff     Backoff
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &Exponential{Base: time.Second, Max: 30 * time.Second, Jitter: 0.1},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// FromSettings builds a retry Config from the application settings.
// A disabled retry section yields a single-attempt policy.
func FromSettings(s config.RetryConfig, l logger.Logger) *Config {
	cfg := DefaultConfig()
	cfg.Logger = l
	if !s.Enabled {
		cfg.MaxAttempts = 1
		return cfg
	}
	cfg.MaxAttempts = s.MaxAttempts
	if s.BaseDelay > 0 {
		b := &Exponential{Base: s.BaseDelay, Max: 30 * time.Second, Jitter: 0.1}
		if s.MaxDelay > 0 {
			b.Max = s.MaxDelay
		}
		cfg.Backoff = b
	}
	return cfg
}

// DefaultRetryIf retries transient network and HTTP failures only
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errs.IsRetryable(err)
}

// Do executes op until it succeeds, returns a non-retryable error, runs out of attempts,
// or ctx is cancelled.
func Do(ctx context.Context, cfg *Config, op Operation) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) || attempt == maxAttempts {
			break
		}

		delay := time.Duration(0)
		if cfg.Backoff != nil {
			delay = cfg.Backoff.Delay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": maxAttempts,
		})

		if werr := sleep(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}

	return lastErr
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg *Config, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}
