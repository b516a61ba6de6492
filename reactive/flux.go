package reactive

import (
	"context"
	"errors"

	"github.com/destel/rill"

	"go.hackfix.me/rxplay/scheduler"
)

// ErrInvalidRate is returned by LimitRate when the rate is not positive.
var ErrInvalidRate = errors.New("reactive: rate must be positive")

// Flux is a lazily evaluated computation that produces an ordered sequence of
// values, possibly ending with an error. Each call to Collect or Stream
// subscribes again and reruns the whole pipeline.
//
// A subscribed Flux is a rill stream: a channel of rill.Try values that is
// closed once the sequence completes. An error ends the sequence.
type Flux[T any] struct {
	subscribe func(ctx context.Context) <-chan rill.Try[T]
}

// Stream subscribes to the Flux and returns the underlying stream. The caller
// must consume the stream fully, e.g. with rill.DrainNB when it stops early.
func (f Flux[T]) Stream(ctx context.Context) <-chan rill.Try[T] {
	return f.subscribe(ctx)
}

// Collect subscribes to the Flux and materializes the whole sequence into a
// slice.
func (f Flux[T]) Collect(ctx context.Context) ([]T, error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items, err := rill.ToSlice(f.subscribe(sctx))
	if err != nil {
		return nil, err
	}
	// Producers stop early without an error when the context is done, so
	// the sequence may be incomplete.
	if err = sctx.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Generate creates a Flux whose values are produced by fn. emit returns false
// once the subscriber is gone, at which point fn should return. An error
// returned by fn ends the sequence.
func Generate[T any](fn func(ctx context.Context, emit func(T) bool) error) Flux[T] {
	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		out := make(chan rill.Try[T])
		go func() {
			defer close(out)
			emit := func(v T) bool {
				return send(ctx, out, rill.Try[T]{Value: v})
			}
			var err error
			func() {
				defer recoverInto(&err)
				err = fn(ctx, emit)
			}()
			if err != nil {
				send(ctx, out, rill.Try[T]{Error: err})
			}
		}()
		return out
	}}
}

// FluxOf returns a Flux that produces values in order.
func FluxOf[T any](values ...T) Flux[T] {
	return Flux[T]{subscribe: func(context.Context) <-chan rill.Try[T] {
		return rill.FromSlice(values, nil)
	}}
}

// FluxError returns a Flux that fails immediately with err.
func FluxError[T any](err error) Flux[T] {
	return Flux[T]{subscribe: func(context.Context) <-chan rill.Try[T] {
		return rill.FromSlice[T](nil, err)
	}}
}

// Range returns a Flux producing count consecutive integers starting at start.
// Values are produced one at a time, as the subscriber consumes them.
func Range(start, count int) Flux[int] {
	return Generate(func(_ context.Context, emit func(int) bool) error {
		for i := start; i < start+count; i++ {
			if !emit(i) {
				return nil
			}
		}
		return nil
	})
}

// FromMono returns a Flux with the single value of m, if any.
func FromMono[T any](m Mono[T]) Flux[T] {
	return Generate(func(ctx context.Context, emit func(T) bool) error {
		v, ok, err := m.subscribe(ctx)
		if err != nil {
			return err
		}
		if ok {
			emit(v)
		}
		return nil
	})
}

// Concat subscribes to each Flux in turn once the previous one completes. An
// error ends the sequence without subscribing to the remaining ones.
func Concat[T any](fluxes ...Flux[T]) Flux[T] {
	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		out := make(chan rill.Try[T])
		go func() {
			defer close(out)
			for _, f := range fluxes {
				if !forward(ctx, f.subscribe(ctx), out) {
					return
				}
			}
		}()
		return out
	}}
}

// ConcatWith appends next after f.
func (f Flux[T]) ConcatWith(next Flux[T]) Flux[T] {
	return Concat(f, next)
}

// MapFlux transforms each value of f with fn, in order.
func MapFlux[T, U any](f Flux[T], fn func(T) U) Flux[U] {
	return Flux[U]{subscribe: func(ctx context.Context) <-chan rill.Try[U] {
		return rill.OrderedMap(f.subscribe(ctx), 1, func(v T) (u U, err error) {
			defer recoverInto(&err)
			return fn(v), nil
		})
	}}
}

// ParallelMap applies fn to each value of f concurrently on s, with at most n
// calls in flight. Results are emitted in the order of the source values,
// regardless of the order in which the calls complete.
func ParallelMap[T, U any](
	f Flux[T], s scheduler.Scheduler, n int, fn func(context.Context, T) (U, error),
) Flux[U] {
	return Flux[U]{subscribe: func(ctx context.Context) <-chan rill.Try[U] {
		return rill.OrderedMap(f.subscribe(ctx), n, func(v T) (U, error) {
			return scheduler.Call(ctx, s, func(ctx context.Context) (U, error) {
				return fn(ctx, v)
			})
		})
	}}
}

// ZipFlux combines the values of a and b pairwise with fn, in emission order.
// The sequence ends as soon as either source ends.
func ZipFlux[A, B, R any](a Flux[A], b Flux[B], fn func(A, B) R) Flux[R] {
	return Flux[R]{subscribe: func(ctx context.Context) <-chan rill.Try[R] {
		out := make(chan rill.Try[R])
		go func() {
			defer close(out)

			zctx, cancel := context.WithCancel(ctx)
			defer cancel()
			inA, inB := a.subscribe(zctx), b.subscribe(zctx)
			// Let both producers observe the cancellation and finish.
			defer rill.DrainNB(inA)
			defer rill.DrainNB(inB)

			for {
				ta, okA := <-inA
				if !okA {
					return
				}
				if ta.Error != nil {
					send(ctx, out, rill.Try[R]{Error: ta.Error})
					return
				}
				tb, okB := <-inB
				if !okB {
					return
				}
				if tb.Error != nil {
					send(ctx, out, rill.Try[R]{Error: tb.Error})
					return
				}

				var r R
				err := func() (err error) {
					defer recoverInto(&err)
					r = fn(ta.Value, tb.Value)
					return nil
				}()
				if !send(ctx, out, rill.Try[R]{Value: r, Error: err}) || err != nil {
					return
				}
			}
		}()
		return out
	}}
}

// DoOnNext calls fn with each value before it's passed downstream.
func (f Flux[T]) DoOnNext(fn func(T)) Flux[T] {
	return f.tap(func(t rill.Try[T]) {
		if t.Error == nil {
			fn(t.Value)
		}
	}, nil)
}

// DoOnError calls fn with the error that ends the sequence.
func (f Flux[T]) DoOnError(fn func(error)) Flux[T] {
	return f.tap(func(t rill.Try[T]) {
		if t.Error != nil {
			fn(t.Error)
		}
	}, nil)
}

// DoOnTerminate calls fn once the sequence completes or fails.
func (f Flux[T]) DoOnTerminate(fn func()) Flux[T] {
	return f.tap(nil, fn)
}

func (f Flux[T]) tap(onItem func(rill.Try[T]), onDone func()) Flux[T] {
	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		in := f.subscribe(ctx)
		out := make(chan rill.Try[T])
		go func() {
			defer close(out)
			for t := range in {
				if onItem != nil {
					onItem(t)
				}
				if t.Error != nil {
					// The subscriber may return as soon as it sees the error.
					if onDone != nil {
						onDone()
					}
					send(ctx, out, t)
					rill.DrainNB(in)
					return
				}
				if !send(ctx, out, t) {
					rill.DrainNB(in)
					return
				}
			}
			if onDone != nil {
				onDone()
			}
		}()
		return out
	}}
}

// OnErrorResume replaces a failed sequence with the Flux returned by fn. The
// source is buffered until it completes, so that a failure discards every
// value the failed sequence produced, and the subscriber only ever sees either
// the complete source or the complete fallback.
func (f Flux[T]) OnErrorResume(fn func(error) Flux[T]) Flux[T] {
	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		out := make(chan rill.Try[T])
		go func() {
			defer close(out)

			sctx, cancel := context.WithCancel(ctx)
			defer cancel()
			items, err := rill.ToSlice(f.subscribe(sctx))
			if err != nil {
				forward(ctx, fn(err).subscribe(ctx), out)
				return
			}
			for _, v := range items {
				if !send(ctx, out, rill.Try[T]{Value: v}) {
					return
				}
			}
		}()
		return out
	}}
}

// PublishOn delivers the values of f from a task running on s. The source is
// consumed by a single task, so the order is preserved.
func (f Flux[T]) PublishOn(s scheduler.Scheduler) Flux[T] {
	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		out := make(chan rill.Try[T])
		err := s.Submit(ctx, func() {
			defer close(out)
			forward(ctx, f.subscribe(ctx), out)
		})
		if err != nil {
			return rill.FromSlice[T](nil, err)
		}
		return out
	}}
}

// LimitRate bounds the number of values produced by f that the subscriber
// hasn't consumed yet to rate. The source is only asked for a new value once
// an earlier one was delivered.
func (f Flux[T]) LimitRate(rate int) Flux[T] {
	if rate <= 0 {
		return FluxError[T](ErrInvalidRate)
	}

	return Flux[T]{subscribe: func(ctx context.Context) <-chan rill.Try[T] {
		in := f.subscribe(ctx)
		credits := make(chan struct{}, rate)
		for range rate {
			credits <- struct{}{}
		}

		buf := make(chan rill.Try[T], rate)
		go func() {
			defer close(buf)
			for {
				select {
				case <-credits:
				case <-ctx.Done():
					rill.DrainNB(in)
					return
				}
				t, ok := <-in
				if !ok {
					return
				}
				buf <- t
			}
		}()

		out := make(chan rill.Try[T])
		go func() {
			defer close(out)
			for t := range buf {
				if !send(ctx, out, t) {
					rill.DrainNB(buf)
					return
				}
				credits <- struct{}{}
			}
		}()

		return out
	}}
}

// send writes t to out, unless ctx is done first.
func send[T any](ctx context.Context, out chan<- rill.Try[T], t rill.Try[T]) bool {
	select {
	case out <- t:
		return true
	case <-ctx.Done():
		return false
	}
}

// forward copies in to out. It returns false if the sequence ended with an
// error, or the subscriber went away.
func forward[T any](ctx context.Context, in <-chan rill.Try[T], out chan<- rill.Try[T]) bool {
	for t := range in {
		if !send(ctx, out, t) {
			rill.DrainNB(in)
			return false
		}
		if t.Error != nil {
			rill.DrainNB(in)
			return false
		}
	}
	return true
}
