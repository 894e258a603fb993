package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var backgroundTasksInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "background_tasks_in_flight",
	Help: "Number of background tasks (SCA flows) currently running",
}, []string{"tracker"})

// InFlightTracker tracks background work (SCA flows that outlive the HTTP request
// that started them) so graceful shutdown waits for it to complete
type InFlightTracker struct {
	wg         sync.WaitGroup
	mu         sync.RWMutex
	shutdownCh chan struct{}
	closed     bool
	logger     *zap.Logger
	name       string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		shutdownCh: make(chan struct{}),
		logger:     logger,
		name:       name,
	}
}

// Add increments the in-flight work counter.
// Returns false if shutdown has been initiated (don't start new work).
func (ift *InFlightTracker) Add() bool {
	ift.mu.RLock()
	defer ift.mu.RUnlock()

	if ift.closed {
		return false
	}
	ift.wg.Add(1)
	backgroundTasksInFlight.WithLabelValues(ift.name).Inc()
	return true
}

// Done decrements the in-flight work counter
func (ift *InFlightTracker) Done() {
	backgroundTasksInFlight.WithLabelValues(ift.name).Dec()
	ift.wg.Done()
}

// Go runs fn on its own goroutine as tracked work.
// fn receives a context that keeps the values of ctx but not its cancellation,
// so a finished HTTP request does not abort the flow it started.
// Returns false, without running fn, once shutdown has begun.
func (ift *InFlightTracker) Go(ctx context.Context, task string, fn func(ctx context.Context)) bool {
	if !ift.Add() {
		ift.logger.Warn("Rejected background task during shutdown",
			zap.String("tracker", ift.name),
			zap.String("task", task),
		)
		return false
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer ift.Done()
		defer func() {
			if r := recover(); r != nil {
				ift.logger.Error("Background task panicked",
					zap.String("tracker", ift.name),
					zap.String("task", task),
					zap.Any("panic", r),
				)
			}
		}()

		start := time.Now()
		fn(detached)
		ift.logger.Debug("Background task finished",
			zap.String("tracker", ift.name),
			zap.String("task", task),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()
	return true
}

// Shutdown stops accepting work and waits for running tasks.
// Returns ctx.Err() if the context expires first.
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.mu.Lock()
	if !ift.closed {
		ift.closed = true
		close(ift.shutdownCh)
	}
	ift.mu.Unlock()

	ift.logger.Info("Waiting for in-flight work to complete",
		zap.String("tracker", ift.name),
	)

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ift.logger.Info("All in-flight work completed",
			zap.String("tracker", ift.name),
		)
		return nil
	case <-ctx.Done():
		ift.logger.Warn("Shutdown timeout - some work may be incomplete",
			zap.String("tracker", ift.name),
		)
		return ctx.Err()
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (ift *InFlightTracker) IsShuttingDown() bool {
	select {
	case <-ift.shutdownCh:
		return true
	default:
		return false
	}
}

// Accepting is the inverse of IsShuttingDown, shaped for readiness probes
func (ift *InFlightTracker) Accepting() bool {
	return !ift.IsShuttingDown()
}

// PeriodicWorker runs a function on an interval until stopped
type PeriodicWorker struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPeriodicWorker creates a new periodic worker
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		logger:   logger,
	}
}

// Start runs work immediately and then on every tick.
// work should respect ctx.Done().
func (pw *PeriodicWorker) Start(ctx context.Context, work func(ctx context.Context)) {
	ctx, pw.cancel = context.WithCancel(ctx)
	pw.wg.Add(1)

	go func() {
		defer pw.wg.Done()
		ticker := time.NewTicker(pw.interval)
		defer ticker.Stop()

		pw.logger.Info("Periodic worker started",
			zap.String("worker", pw.name),
			zap.Duration("interval", pw.interval),
		)

		work(ctx)
		for {
			select {
			case <-ctx.Done():
				pw.logger.Info("Periodic worker stopped", zap.String("worker", pw.name))
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	}()
}

// Shutdown stops the worker and waits for the current run to return
func (pw *PeriodicWorker) Shutdown(ctx context.Context) error {
	pw.once.Do(func() {
		if pw.cancel != nil {
			pw.cancel()
		}
	})

	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		pw.logger.Warn("Periodic worker shutdown timeout", zap.String("worker", pw.name))
		return ctx.Err()
	}
}
