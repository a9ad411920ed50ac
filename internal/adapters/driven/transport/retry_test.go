package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

func fastPolicy(attempts int) *RetryPolicy {
	p := NewRetryPolicy(domain.RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	})
	p.jitter = func(int64) int64 { return 0 }
	return p
}

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p := NewRetryPolicy(domain.RetryConfig{})
	assert.Equal(t, domain.DefaultRetryAttempts, p.MaxAttempts)
	assert.Equal(t, domain.DefaultRetryBaseDelay, p.BaseDelay)
	assert.Equal(t, domain.DefaultRetryMaxDelay, p.MaxDelay)
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := fastPolicy(3)

	tests := []struct {
		name     string
		err      error
		attempt  int
		expected bool
	}{
		{"connection first attempt", &domain.ConnectionError{Message: "refused"}, 0, true},
		{"server error second attempt", &domain.APIError{StatusCode: 502}, 1, true},
		{"attempts exhausted", &domain.APIError{StatusCode: 502}, 2, false},
		{"rate limited", &domain.APIError{StatusCode: 429}, 0, true},
		{"bad request", &domain.APIError{StatusCode: 400}, 0, false},
		{"auth", &domain.AuthError{Message: "expired"}, 0, false},
		{"not found", &domain.NotFoundError{}, 0, false},
		{"plain", errors.New("boom"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestRetryPolicy_DelayFor(t *testing.T) {
	p := NewRetryPolicy(domain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second})
	p.jitter = func(int64) int64 { return 0 }

	assert.Equal(t, time.Second, p.DelayFor(0))
	assert.Equal(t, 2*time.Second, p.DelayFor(1))
	assert.Equal(t, 4*time.Second, p.DelayFor(2))
	assert.Equal(t, 8*time.Second, p.DelayFor(3))
	assert.Equal(t, 10*time.Second, p.DelayFor(4))
	assert.Equal(t, 10*time.Second, p.DelayFor(20))
}

func TestRetryPolicy_DelayForJitterBounds(t *testing.T) {
	p := NewRetryPolicy(domain.RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	for i := 0; i < 200; i++ {
		d := p.DelayFor(1)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.Less(t, d, 400*time.Millisecond)
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		p := fastPolicy(3)
		calls := 0
		err := p.Do(context.Background(), "test", func(context.Context) error {
			calls++
			if calls < 3 {
				return &domain.APIError{StatusCode: 503}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		p := fastPolicy(2)
		calls := 0
		err := p.Do(context.Background(), "test", func(context.Context) error {
			calls++
			return &domain.ConnectionError{Message: "refused"}
		})
		var connErr *domain.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry auth errors", func(t *testing.T) {
		p := fastPolicy(5)
		calls := 0
		err := p.Do(context.Background(), "test", func(context.Context) error {
			calls++
			return &domain.AuthError{Message: "denied"}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		p := NewRetryPolicy(domain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := p.Do(ctx, "test", func(context.Context) error {
			calls++
			cancel()
			return &domain.APIError{StatusCode: 500}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
