package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BoundedElastic runs each task on its own goroutine, with at most a fixed
// number of tasks running at the same time.
type BoundedElastic struct {
	pool
	limit  int64
	sem    *semaphore.Weighted
	mx     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Scheduler = (*BoundedElastic)(nil)

// NewBoundedElastic creates a pool that runs at most limit tasks
// concurrently. If limit is not positive, it defaults to 10 times the number
// of CPUs.
func NewBoundedElastic(limit int, opts ...Option) (*BoundedElastic, error) {
	if limit <= 0 {
		limit = 10 * runtime.NumCPU()
	}

	cfg := &config{name: "bounded-elastic"}
	opts = append(defaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	be := &BoundedElastic{
		pool:  cfg.pool(),
		limit: int64(limit),
		sem:   semaphore.NewWeighted(int64(limit)),
	}
	be.logger.Debug("started pool", "limit", limit)

	return be, nil
}

// Submit starts task as soon as fewer than the pool limit tasks are running.
func (be *BoundedElastic) Submit(ctx context.Context, task func()) error {
	be.mx.RLock()
	defer be.mx.RUnlock()

	if be.closed {
		return ErrClosed
	}

	if err := be.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed acquiring task slot: %w", err)
	}

	be.metrics.IncrCounter([]string{"scheduler", be.name, "submitted"}, 1)

	be.wg.Add(1)
	go func() {
		defer be.wg.Done()
		defer be.sem.Release(1)
		be.run(task)
	}()

	return nil
}

// Limit returns the maximum number of concurrently running tasks.
func (be *BoundedElastic) Limit() int {
	return int(be.limit)
}

// Close stops accepting tasks, and waits for running tasks to finish.
func (be *BoundedElastic) Close() error {
	be.mx.Lock()
	if be.closed {
		be.mx.Unlock()
		return nil
	}
	be.closed = true
	be.mx.Unlock()

	be.wg.Wait()
	be.logger.Debug("stopped pool")

	return nil
}
