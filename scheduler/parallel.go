package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Parallel is a fixed-size pool of worker goroutines consuming a bounded task
// queue.
type Parallel struct {
	pool
	workers int
	tasks   chan func()
	mx      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

var _ Scheduler = (*Parallel)(nil)

// NewParallel starts a pool with the given number of workers. If workers is
// not positive, runtime.NumCPU() workers are started.
func NewParallel(workers int, opts ...Option) (*Parallel, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	cfg := &config{name: "parallel"}
	opts = append(defaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	queueSize := cfg.queueSize
	if queueSize <= 0 {
		queueSize = workers
	}

	p := &Parallel{
		pool:    cfg.pool(),
		workers: workers,
		tasks:   make(chan func(), queueSize),
	}

	p.wg.Add(workers)
	for range workers {
		go p.work()
	}

	p.logger.Debug("started pool", "workers", workers, "queue_size", queueSize)

	return p, nil
}

func (p *Parallel) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// Submit queues task for execution by one of the workers.
func (p *Parallel) Submit(ctx context.Context, task func()) error {
	p.mx.RLock()
	defer p.mx.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		p.metrics.IncrCounter([]string{"scheduler", p.name, "submitted"}, 1)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed queueing task: %w", ctx.Err())
	}
}

// Workers returns the number of worker goroutines.
func (p *Parallel) Workers() int {
	return p.workers
}

// Close stops accepting tasks, and waits for queued tasks to finish.
func (p *Parallel) Close() error {
	p.mx.Lock()
	if p.closed {
		p.mx.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mx.Unlock()

	p.wg.Wait()
	p.logger.Debug("stopped pool")

	return nil
}
