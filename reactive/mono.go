package reactive

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"go.hackfix.me/rxplay/scheduler"
)

// Mono is a lazily evaluated computation that produces at most one value, or
// fails. Nothing runs until Block is called, and every call runs the
// computation again, unless the Mono was cached.
type Mono[T any] struct {
	subscribe func(ctx context.Context) (T, bool, error)
}

// Just returns a Mono that produces v.
func Just[T any](v T) Mono[T] {
	return Mono[T]{subscribe: func(context.Context) (T, bool, error) {
		return v, true, nil
	}}
}

// Empty returns a Mono that completes without a value.
func Empty[T any]() Mono[T] {
	return Mono[T]{subscribe: func(context.Context) (T, bool, error) {
		var zero T
		return zero, false, nil
	}}
}

// Fail returns a Mono that fails with err.
func Fail[T any](err error) Mono[T] {
	return Mono[T]{subscribe: func(context.Context) (T, bool, error) {
		var zero T
		return zero, false, err
	}}
}

// FromFunc returns a Mono that calls fn on every subscription.
func FromFunc[T any](fn func(context.Context) (T, error)) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (v T, ok bool, err error) {
		defer recoverInto(&err)
		v, err = fn(ctx)
		if err != nil {
			var zero T
			return zero, false, err
		}
		return v, true, nil
	}}
}

// FromRunnable returns a Mono that runs fn for its side effects, and completes
// empty.
func FromRunnable(fn func(context.Context) error) Mono[struct{}] {
	return Mono[struct{}]{subscribe: func(ctx context.Context) (_ struct{}, _ bool, err error) {
		defer recoverInto(&err)
		return struct{}{}, false, fn(ctx)
	}}
}

// Block subscribes to the Mono and waits for its outcome. ok is false if the
// Mono completed without a value.
func (m Mono[T]) Block(ctx context.Context) (v T, ok bool, err error) {
	if err = ctx.Err(); err != nil {
		return v, false, err
	}
	return m.subscribe(ctx)
}

// MapMono transforms the value of m with fn.
func MapMono[T, U any](m Mono[T], fn func(T) U) Mono[U] {
	return Mono[U]{subscribe: func(ctx context.Context) (u U, ok bool, err error) {
		v, found, err := m.subscribe(ctx)
		if err != nil || !found {
			return u, false, err
		}
		defer recoverInto(&err)
		return fn(v), true, nil
	}}
}

// FlatMapMono chains the Mono returned by fn after m.
func FlatMapMono[T, U any](m Mono[T], fn func(T) Mono[U]) Mono[U] {
	return Mono[U]{subscribe: func(ctx context.Context) (u U, ok bool, err error) {
		v, found, err := m.subscribe(ctx)
		if err != nil || !found {
			return u, false, err
		}
		defer recoverInto(&err)
		return fn(v).subscribe(ctx)
	}}
}

// Then runs m, discards its value, and continues with next. An error from m
// skips next.
func Then[T, U any](m Mono[T], next Mono[U]) Mono[U] {
	return Mono[U]{subscribe: func(ctx context.Context) (U, bool, error) {
		if _, _, err := m.subscribe(ctx); err != nil {
			var zero U
			return zero, false, err
		}
		return next.subscribe(ctx)
	}}
}

// ZipMono subscribes to a and b concurrently, and combines both values with
// fn. If either fails, the other is cancelled and the error is returned. If
// either completes empty, the result is empty.
func ZipMono[A, B, R any](a Mono[A], b Mono[B], fn func(A, B) R) Mono[R] {
	return Mono[R]{subscribe: func(ctx context.Context) (r R, ok bool, err error) {
		var (
			va       A
			vb       B
			okA, okB bool
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			va, okA, err = a.subscribe(gctx)
			return err
		})
		g.Go(func() (err error) {
			vb, okB, err = b.subscribe(gctx)
			return err
		})
		if err = g.Wait(); err != nil {
			return r, false, err
		}
		if !okA || !okB {
			return r, false, nil
		}
		defer recoverInto(&err)
		return fn(va, vb), true, nil
	}}
}

// DoOnNext calls fn with the value before it's passed downstream.
func (m Mono[T]) DoOnNext(fn func(T)) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		v, ok, err := m.subscribe(ctx)
		if err == nil && ok {
			fn(v)
		}
		return v, ok, err
	}}
}

// DoOnError calls fn with the error before it's passed downstream.
func (m Mono[T]) DoOnError(fn func(error)) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		v, ok, err := m.subscribe(ctx)
		if err != nil {
			fn(err)
		}
		return v, ok, err
	}}
}

// DoOnTerminate calls fn once m completes, with or without a value, or fails.
func (m Mono[T]) DoOnTerminate(fn func()) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		v, ok, err := m.subscribe(ctx)
		fn()
		return v, ok, err
	}}
}

// OnErrorResume replaces a failure of m with the Mono returned by fn. The
// original error is not propagated.
func (m Mono[T]) OnErrorResume(fn func(error) Mono[T]) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		v, ok, err := m.subscribe(ctx)
		if err == nil {
			return v, ok, nil
		}
		return fn(err).subscribe(ctx)
	}}
}

// SubscribeOn runs the computation on s.
func (m Mono[T]) SubscribeOn(s scheduler.Scheduler) Mono[T] {
	type result struct {
		value T
		ok    bool
	}
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		res, err := scheduler.Call(ctx, s, func(ctx context.Context) (result, error) {
			v, ok, err := m.subscribe(ctx)
			return result{value: v, ok: ok}, err
		})
		return res.value, res.ok && err == nil, err
	}}
}

// DelayElement delays the value of m by d. The delay is interrupted if the
// subscription context is done.
func (m Mono[T]) DelayElement(d time.Duration) Mono[T] {
	return Mono[T]{subscribe: func(ctx context.Context) (T, bool, error) {
		v, ok, err := m.subscribe(ctx)
		if err != nil || !ok {
			return v, ok, err
		}

		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return v, true, nil
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}}
}

// Flux converts m into a sequence of zero or one elements.
func (m Mono[T]) Flux() Flux[T] {
	return FromMono(m)
}

// Cache returns a Mono that runs m once, and then replays its outcome to all
// subscribers. Concurrent first subscribers wait for the single computation.
// Failures are not cached, so the next subscriber runs m again.
func (m Mono[T]) Cache() Mono[T] {
	c := &monoCache[T]{source: m, sem: semaphore.NewWeighted(1)}
	return Mono[T]{subscribe: c.subscribe}
}

type monoCache[T any] struct {
	source Mono[T]
	sem    *semaphore.Weighted
	done   atomic.Bool
	value  T
	ok     bool
}

func (c *monoCache[T]) subscribe(ctx context.Context) (T, bool, error) {
	if c.done.Load() {
		return c.value, c.ok, nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		var zero T
		return zero, false, err
	}
	defer c.sem.Release(1)

	// Populated by another subscriber while this one was waiting.
	if c.done.Load() {
		return c.value, c.ok, nil
	}

	v, ok, err := c.source.subscribe(ctx)
	if err != nil {
		return v, false, err
	}
	c.value, c.ok = v, ok
	c.done.Store(true)

	return v, ok, nil
}
