package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExchangeBackoff(t *testing.T) {
	backoff := TokenExchangeBackoff()

	assert.Equal(t, 200*time.Millisecond, backoff.BaseDelay)
	assert.Equal(t, 2*time.Second, backoff.MaxDelay)
	assert.Equal(t, 2.0, backoff.Multiplier)
}

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{10, 1 * time.Second},
	}

	for _, tt := range tests {
		delay := backoff.NextDelay(tt.attempt)
		if delay != tt.expected {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expected)
		}
	}
}

func TestExponentialBackoff_JitterStaysInRange(t *testing.T) {
	backoff := NotificationBackoff()

	for i := 0; i < 100; i++ {
		delay := backoff.NextDelay(1)
		assert.GreaterOrEqual(t, delay, 900*time.Millisecond)
		assert.LessOrEqual(t, delay, 1100*time.Millisecond)
	}
}

func TestRetry(t *testing.T) {
	fast := &FixedBackoff{Delay: time.Millisecond}
	errTemporary := errors.New("temporary")
	errFatal := errors.New("fatal")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, fast, nil, func() error {
			calls++
			if calls < 3 {
				return errTemporary
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 2, fast, nil, func() error {
			calls++
			return errTemporary
		})
		assert.ErrorIs(t, err, errTemporary)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on non retryable error", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 5, fast, func(err error) bool { return err != errFatal }, func() error {
			calls++
			return errFatal
		})
		assert.ErrorIs(t, err, errFatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Retry(ctx, 5, &FixedBackoff{Delay: time.Hour}, nil, func() error {
			calls++
			return errTemporary
		})
		assert.ErrorIs(t, err, errTemporary)
		assert.Equal(t, 1, calls)
	})
}
