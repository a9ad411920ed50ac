package transport

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// RetryPolicy decides whether a failed call is retried and how long to wait.
// Retryable classes are connection failures and API errors with status 429
// or 5xx. Everything else surfaces immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential part of the delay.
	MaxDelay time.Duration

	// jitter returns a value in [0, n). Replaced in tests.
	jitter func(n int64) int64
}

// NewRetryPolicy creates a policy from configuration, applying defaults
// for unset fields.
func NewRetryPolicy(cfg domain.RetryConfig) *RetryPolicy {
	p := &RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		jitter:      rand.Int64N,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = domain.DefaultRetryAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = domain.DefaultRetryBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = domain.DefaultRetryMaxDelay
	}
	return p
}

// ShouldRetry reports whether a call that failed with err on the given
// zero-based attempt should be tried again.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt+1 >= p.MaxAttempts {
		return false
	}
	return domain.IsRetryable(err)
}

// DelayFor returns the wait before retrying after the given zero-based attempt:
// BaseDelay * 2^attempt capped at MaxDelay, plus jitter in [0, delay).
func (p *RetryPolicy) DelayFor(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay <= 0 {
		return 0
	}
	jitter := p.jitter
	if jitter == nil {
		jitter = rand.Int64N
	}
	return delay + time.Duration(jitter(int64(delay)))
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. The last error is returned unchanged.
func (p *RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !p.ShouldRetry(err, attempt) {
			return err
		}

		delay := p.DelayFor(attempt)
		logger.Debug("%s: attempt %d/%d failed (%v), retrying in %s", op, attempt+1, p.MaxAttempts, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
