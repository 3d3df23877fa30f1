package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentantai21042004/lecture-flow/internal/config"
	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// NewDispatcher returns the Dispatcher for a pipeline mode.
func NewDispatcher(mode string, workers int, log logger.Logger) (Dispatcher, error) {
	switch mode {
	case config.ModeSync, "":
		return NewSyncDispatcher(), nil
	case config.ModeAsync:
		return NewAsyncDispatcher(workers, log), nil
	default:
		return nil, fmt.Errorf("unknown pipeline mode %q", mode)
	}
}

type syncDispatcher struct{}

// NewSyncDispatcher processes each job on the caller's goroutine.
func NewSyncDispatcher() Dispatcher {
	return syncDispatcher{}
}

func (syncDispatcher) Dispatch(ctx context.Context, job ledger.Job, run RunFunc) (ledger.Job, error) {
	return run(ctx)
}

func (syncDispatcher) Close(ctx context.Context) error {
	return nil
}

// cancelGrace is how long Close waits for cancelled jobs to record FAILED.
const cancelGrace = 5 * time.Second

type asyncDispatcher struct {
	logger    logger.Logger
	semaphore chan struct{}
	// base parents every job context; cancelling it interrupts all jobs.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher processes jobs in the background with at most workers
// running at once. Jobs beyond that wait for a free slot.
func NewAsyncDispatcher(workers int, log logger.Logger) Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	base, cancel := context.WithCancel(context.Background())
	return &asyncDispatcher{
		logger:    log,
		semaphore: make(chan struct{}, workers),
		base:      base,
		cancel:    cancel,
	}
}

func (d *asyncDispatcher) Dispatch(ctx context.Context, job ledger.Job, run RunFunc) (ledger.Job, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ledger.Job{}, ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	// The job outlives the request that submitted it, but not the dispatcher.
	bg := logger.WithJob(d.base, job.ID)

	go func() {
		defer d.wg.Done()

		select {
		case d.semaphore <- struct{}{}:
			defer func() { <-d.semaphore }()
		case <-bg.Done():
			// Still run so the job is recorded as interrupted.
		}

		if _, err := run(bg); err != nil {
			d.logger.Error(bg, "Background processing failed: %v", err)
		}
	}()

	return job, nil
}

// Close stops accepting jobs and waits for the running ones. If ctx ends
// first, every job is cancelled and Close waits up to cancelGrace for them
// to record their failure.
func (d *asyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
	}

	d.logger.Warn(ctx, "Shutdown deadline reached, cancelling running jobs")
	d.cancel()

	select {
	case <-done:
		return fmt.Errorf("jobs cancelled: %w", ctx.Err())
	case <-time.After(cancelGrace):
		return fmt.Errorf("jobs still running after cancel: %w", ctx.Err())
	}
}
