// Package retry runs operations under a bounded retry policy and waits for conditions
// with a clear distinction between timing out and observing a contradiction.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bridgekit/gravity-orchestrator/config"
)

const defaultInterval = time.Second

var (
	// ErrInconclusive is returned when the deadline passed while the condition was still pending.
	ErrInconclusive = errors.New("condition was not reached before the deadline")
	// ErrContradiction is returned when a final value contradicting the expectation was observed.
	ErrContradiction = errors.New("observed a contradictory final value")

	errPending = errors.New("condition is still pending")
)

// Policy bounds a retry loop. Zero MaxAttempts means attempts are only bounded by Timeout,
// a Multiplier of 1 gives a fixed interval.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Timeout         time.Duration
}

func Fixed(interval, timeout time.Duration) Policy {
	return Policy{
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
		Timeout:         timeout,
	}
}

func Exponential(initial, maxInterval time.Duration, maxAttempts uint64) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
		Multiplier:      2,
	}
}

func FromConfig(cfg *config.RetryConfig) Policy {
	if cfg == nil {
		return Exponential(defaultInterval, 30*time.Second, 10)
	}
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
		Timeout:         cfg.Timeout,
	}
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultInterval
	}
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var bo backoff.BackOff = b
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, p.MaxAttempts-1)
	}
	return backoff.WithContext(bo, ctx)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, or the policy is exhausted.
// The last error is returned on exhaustion, the context error when the deadline passed first.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return backoff.RetryWithData(func() (T, error) {
		return op(ctx)
	}, p.newBackOff(ctx))
}

// Await polls probe until it reports done. A probe error wrapping ErrContradiction stops the
// loop immediately, other errors are treated as transient. When the policy runs out first,
// the result wraps ErrInconclusive.
func Await(ctx context.Context, p Policy, probe func(ctx context.Context) (bool, error)) error {
	var lastErr error
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		done, err := probe(ctx)
		switch {
		case errors.Is(err, ErrContradiction):
			return struct{}{}, Permanent(err)
		case err != nil:
			lastErr = err
			return struct{}{}, err
		case !done:
			lastErr = nil
			return struct{}{}, errPending
		}
		return struct{}{}, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrContradiction):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case lastErr != nil:
		return fmt.Errorf("%w: last error: %v", ErrInconclusive, lastErr)
	default:
		return ErrInconclusive
	}
}
