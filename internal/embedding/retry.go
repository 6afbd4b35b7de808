package embedding

import (
	"context"
	"fmt"
	"time"
)

// retryPolicy is the shared timeout/backoff contract both live providers
// use: up to maxRetries attempts beyond the first, sleeping
// backoff*2^(n-1) before the n-th retry (backoff, 2*backoff, 4*backoff,
// ...), each attempt bounded by timeout.
type retryPolicy struct {
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// withRetry runs call up to p.maxRetries+1 times. Each attempt's ctx
// carries a fresh per-call deadline. If every attempt fails, the
// returned error always has a non-empty message naming the failing
// attempt's underlying error type.
func (p retryPolicy) withRetry(ctx context.Context, providerName string, call func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff * time.Duration(int64(1)<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", providerName, ctx.Err())
			case <-time.After(delay):
			}
		}

		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		vec, err := call(cctx)
		cancel()
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no details available")
	}
	return nil, fmt.Errorf("%s: exhausted %d attempts: %T: %v", providerName, p.maxRetries+1, lastErr, lastErr)
}

func newRetryPolicy(timeoutSeconds, maxRetries, backoffSeconds int) retryPolicy {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	if backoffSeconds <= 0 {
		backoffSeconds = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retryPolicy{
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		maxRetries: maxRetries,
		backoff:    time.Duration(backoffSeconds) * time.Second,
	}
}
