// Package retry provides automatic retry logic with exponential backoff
// for transient HTTP transport failures.
//
// The package supports pluggable error classification and backoff strategies.
// It decides retries on transport and server health alone; whether a request
// is safe to resend at all is the caller's decision, expressed through the
// per-call budget of WithMaxRetries.
//
// # Example Usage
//
//	classifier := retry.NewHTTPErrorClassifier()
//	strategy := retry.NewExponentialBackoff(2)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.WithMaxRetries(0).Execute(ctx, func(ctx context.Context) error {
//	    return send(ctx)
//	})
//
// # Error Classification
//
// HTTPErrorClassifier treats network errors, timeouts and StatusError values
// carrying 5xx or 429 as transient. Everything else is fatal.
//
// # Backoff Strategies
//
// ExponentialBackoff computes initialDelay * 2^(attempt-1) plus up to 100ms of
// random jitter. Inject WithJitterFunc for deterministic tests.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. The With* methods return copies.
package retry
