package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/secmon-lab/anzen/pkg/domain/model"
)

// RetryPolicy bounds how often a remote round-trip is repeated after a
// transient failure. Conflicts are never retried.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// JitterFactor is the maximum jitter as a fraction of the backoff (0-1)
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

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

func isRetryable(err error) bool {
	return !errors.Is(err, model.ErrSyncConflict) && !errors.Is(err, context.Canceled)
}

// run calls fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The last error is returned.
func (p RetryPolicy) run(ctx context.Context, sleep sleepFunc, fn func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)
	backoff := p.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == attempts {
			return lastErr
		}

		if err := sleep(ctx, withJitter(backoff, p.JitterFactor)); err != nil {
			return lastErr
		}
		backoff = nextBackoff(backoff, p.BackoffFactor, p.MaxBackoff)
	}

	return lastErr
}

// withJitter spreads base over [base*(1-jitter), base*(1+jitter)]
func withJitter(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	return time.Duration(float64(base) * (1.0 + (rand.Float64()*2-1)*jitter))
}

func nextBackoff(current time.Duration, factor float64, limit time.Duration) time.Duration {
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(current) * factor)
	if limit > 0 && next > limit {
		return limit
	}
	return next
}
