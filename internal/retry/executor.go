package retry

import (
	"context"
	"time"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Executor orchestrates retry attempts with backoff and error classification.
//
// Thread Safety:
// The Executor itself is safe for concurrent use when calling Execute().
// The With* methods return a NEW instance with the setting applied,
// so each caller can derive its own configuration without shared state.
type Executor struct {
	classifier d1sql.ErrorClassifier
	strategy   d1sql.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
	sleep      func(ctx context.Context, d time.Duration) error

	// maxRetries overrides strategy.MaxAttempts() when hasBudget is set
	maxRetries int
	hasBudget  bool
}

// NewExecutor creates a new retry executor with the given configuration.
// Panics if classifier or strategy is nil.
func NewExecutor(
	classifier d1sql.ErrorClassifier,
	strategy d1sql.BackoffStrategy,
) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
		sleep:      sleepContext,
	}
}

// WithOnRetry returns a new Executor with the specified retry callback.
//
// This method does NOT modify the receiver; it returns a new instance.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// WithMaxRetries returns a new Executor that allows at most n retries for each
// Execute call, regardless of the strategy's default. n = 0 disables retries.
func (e *Executor) WithMaxRetries(n int) *Executor {
	clone := *e
	clone.maxRetries = n
	clone.hasBudget = true
	return &clone
}

// WithSleep returns a new Executor that waits using sleep instead of a timer.
func (e *Executor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Executor {
	clone := *e
	clone.sleep = sleep
	return &clone
}

// MaxRetries returns the retry budget Execute will honor.
func (e *Executor) MaxRetries() int {
	if e.hasBudget {
		return e.maxRetries
	}
	return e.strategy.MaxAttempts()
}

// Execute runs the operation with retry logic.
// Returns the result of the last attempt (success or fatal error).
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	maxRetries := e.MaxRetries()

	lastErr := operation(ctx)
	if lastErr == nil {
		return nil
	}

	if !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	// If maxRetries is negative (typically -1), retry indefinitely
	for attempt := 1; maxRetries < 0 || attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)

		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// sleepContext waits for d, returning early with the context error on cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
