package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoValSuccessFirstTry(t *testing.T) {
	var calls int32

	got, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(1), calls)
}

func TestDoValRetriesTransient(t *testing.T) {
	var calls int32

	got, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, NewTransientError(errors.New("flaky"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, int32(3), calls)
}

func TestDoValExhaustsAttempts(t *testing.T) {
	var calls int32
	boom := NewTransientError(errors.New("always down"))

	_, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, boom
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestDoValDoesNotRetryPermanent(t *testing.T) {
	var calls int32

	_, err := DoVal(context.Background(), fastRetry(5), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("bad input")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestDoValNoRetry(t *testing.T) {
	var calls int32

	_, err := DoVal(context.Background(), NoRetry(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, NewTransientError(errors.New("flaky"))
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestDoValStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	_, err := DoVal(ctx, fastRetry(5), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return 0, NewTransientError(errors.New("flaky"))
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestDoValCustomShouldRetry(t *testing.T) {
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	var calls int32
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("retry me")
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("parse error")))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"))))
	assert.True(t, IsTransient(errors.New("fork: cannot allocate memory")))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
}

func TestComputeBackoffCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
		Multiplier:     2,
		JitterFraction: -1, // normalized to 0
	})

	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 3*time.Second, computeBackoff(2, cfg))
	assert.Equal(t, 3*time.Second, computeBackoff(5, cfg))
}

func TestComputeBackoffJitterBounds(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	})

	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}
