package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	r := NewRateLimiter(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Wait(ctx))
	}
}

func TestRateLimiter_Nil(t *testing.T) {
	var r *RateLimiter
	assert.NoError(t, r.Wait(context.Background()))
	r.RecordRetryAfter(time.Second)
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRetryAfter(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := r.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_IgnoresShorterBackoff(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRetryAfter(time.Hour)
	r.RecordRetryAfter(time.Millisecond)
	assert.True(t, r.retryAt.After(time.Now().Add(30*time.Minute)))
}

func TestRateLimiter_ThrottlesToRate(t *testing.T) {
	r := NewRateLimiter(1)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}
