package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ctxKey struct{}

func TestInFlightTracker_GoDetachesCancellation(t *testing.T) {
	tracker := NewInFlightTracker("flows", zap.NewNop())

	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "tab-1"))
	release := make(chan struct{})
	result := make(chan error, 1)

	started := tracker.Go(parent, "payment", func(ctx context.Context) {
		<-release
		assert.Equal(t, "tab-1", ctx.Value(ctxKey{}))
		result <- ctx.Err()
	})
	require.True(t, started)

	cancel()
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("background task did not run")
	}
}

func TestInFlightTracker_ShutdownWaitsAndRejects(t *testing.T) {
	tracker := NewInFlightTracker("flows", zap.NewNop())

	var finished atomic.Bool
	tracker.Go(context.Background(), "slow", func(ctx context.Context) {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	require.NoError(t, tracker.Shutdown(context.Background()))
	assert.True(t, finished.Load())
	assert.False(t, tracker.Accepting())

	assert.False(t, tracker.Go(context.Background(), "late", func(ctx context.Context) {
		t.Error("must not run after shutdown")
	}))
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("flows", zap.NewNop())
	block := make(chan struct{})
	defer close(block)

	tracker.Go(context.Background(), "stuck", func(ctx context.Context) { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestInFlightTracker_RecoversPanics(t *testing.T) {
	tracker := NewInFlightTracker("flows", zap.NewNop())
	tracker.Go(context.Background(), "panics", func(ctx context.Context) { panic("boom") })

	assert.NoError(t, tracker.Shutdown(context.Background()))
}

func TestPeriodicWorker_RunsImmediatelyAndStops(t *testing.T) {
	worker := NewPeriodicWorker("warm", time.Hour, zap.NewNop())

	var runs atomic.Int32
	ran := make(chan struct{}, 1)
	worker.Start(context.Background(), func(ctx context.Context) {
		runs.Add(1)
		ran <- struct{}{}
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not run on start")
	}

	require.NoError(t, worker.Shutdown(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}
