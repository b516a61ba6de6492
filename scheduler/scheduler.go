// Package scheduler provides the worker pools that reactive pipelines run
// their work on.
//
// Two kinds of pools are available. A [Parallel] pool runs a fixed number of
// worker goroutines that consume a bounded task queue, and is meant for short,
// CPU-bound work. A [BoundedElastic] pool starts a goroutine per task, but
// limits how many tasks may run at once, and is meant for work that blocks on
// I/O or sleeps. Both pools are sized independently.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
)

var (
	// ErrClosed is returned when submitting a task to a pool that was closed.
	ErrClosed = errors.New("scheduler: pool is closed")
	// ErrTaskPanic wraps the value of a panic recovered from a task.
	ErrTaskPanic = errors.New("scheduler: task panicked")
)

// Scheduler accepts tasks for asynchronous execution.
type Scheduler interface {
	// Submit schedules task for execution. It blocks while the pool has no
	// capacity, until ctx is done.
	Submit(ctx context.Context, task func()) error
	// Name returns the pool name used in logs and metrics.
	Name() string
}

// Call runs fn on s and waits for its result. A panic in fn is returned as an
// error wrapping ErrTaskPanic.
func Call[T any](ctx context.Context, s Scheduler, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	resCh := make(chan result, 1)
	err := s.Submit(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- result{err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
			}
		}()
		v, ferr := fn(ctx)
		resCh <- result{value: v, err: ferr}
	})
	if err != nil {
		return zero, fmt.Errorf("failed submitting task to %s scheduler: %w", s.Name(), err)
	}

	select {
	case r := <-resCh:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// pool holds the state shared by both pool kinds.
type pool struct {
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// run executes a single task, recording its duration and recovering panics so
// that a failing task can't bring down a worker.
func (p *pool) run(task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
			p.metrics.IncrCounter([]string{"scheduler", p.name, "panic"}, 1)
		}
		p.metrics.MeasureSince([]string{"scheduler", p.name, "task"}, start)
	}()
	task()
}

// Name returns the pool name.
func (p *pool) Name() string {
	return p.name
}
