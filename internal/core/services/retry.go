package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/metrics"
)

// RetryPolicy bounds how transient network failures are retried.
// MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Factor         float64
	Jitter         float64
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		Factor:         2.0,
		Jitter:         0.1,
		MaxBackoff:     10 * time.Second,
	}
}

func (p RetryPolicy) backoff() wait.Backoff {
	return wait.Backoff{
		Duration: p.InitialBackoff,
		Factor:   p.Factor,
		Jitter:   p.Jitter,
		Steps:    p.MaxAttempts,
		Cap:      p.MaxBackoff,
	}
}

// retry runs fn until it succeeds, fails with a non-retryable error or the
// policy is exhausted. The last error is returned unchanged.
func retry[T any](ctx context.Context, o *Orchestrator, op string, fn func() (T, error)) (T, error) {
	return retryUntil(ctx, o, op, time.Time{}, fn)
}

// retryUntil is retry with backoff sleeps cut short at deadline. Once the
// deadline has passed the last error is returned. A zero deadline means none.
func retryUntil[T any](ctx context.Context, o *Orchestrator, op string, deadline time.Time, fn func() (T, error)) (T, error) {
	attempts := o.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := o.retry.backoff()

	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil || !domain.IsRetryable(err) || attempt >= attempts {
			return v, err
		}

		delay := b.Step()
		if !deadline.IsZero() {
			remaining := deadline.Sub(o.clock.Now())
			if remaining <= 0 {
				return v, err
			}
			delay = min(delay, remaining)
		}
		metrics.IncrementRetry(op)
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   delay,
		}).WithError(err).Warn("transient failure, retrying")

		if serr := o.sleeper.Sleep(ctx, delay); serr != nil {
			var zero T
			return zero, serr
		}
	}
}

// retryErr is retry for calls without a result.
func retryErr(ctx context.Context, o *Orchestrator, op string, fn func() error) error {
	_, err := retry(ctx, o, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
