// Package resilience wraps calls to the ledger gateway in the usual
// fault-tolerance patterns: bounded retry with jittered exponential
// backoff, a failure-ratio circuit breaker, and a bulkhead capping
// in-flight requests. The scoring flow itself never retries; only the
// gateway edge does.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the retry and concurrency knobs, loaded from env by the
// config package.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs fn up to 1+MaxRetries times. The wait doubles
// each attempt, plus up to 50% jitter so synchronized callers spread
// out. Context cancellation wins over any remaining attempts.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a breaker tuned for the ledger gateway:
// it opens once 5 requests in a 30s window fail at a 60% ratio, and
// probes with 3 requests after 10s open.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead caps the number of concurrent calls to one resource. A full
// bulkhead blocks Acquire rather than failing fast; the caller's
// context deadline decides how long to wait.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead admitting maxConcurrency calls.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot frees up or the context is done.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.sem
}
