package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rxplay/scheduler"
)

func testOptions(t *testing.T) []scheduler.Option {
	t.Helper()
	m, err := metrics.New(metrics.DefaultConfig("test"), &metrics.BlackholeSink{})
	require.NoError(t, err)
	return []scheduler.Option{
		scheduler.WithLogger(slog.New(slog.DiscardHandler)),
		scheduler.WithMetrics(m),
	}
}

// maxConcurrency submits n tasks that each sleep for a while, and returns the
// highest number of tasks observed running at the same time.
func maxConcurrency(t *testing.T, s scheduler.Scheduler, n int) int64 {
	t.Helper()

	var (
		running, peak atomic.Int64
		wg            sync.WaitGroup
	)
	wg.Add(n)
	for range n {
		err := s.Submit(t.Context(), func() {
			defer wg.Done()
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	return peak.Load()
}

func TestParallel(t *testing.T) {
	t.Parallel()

	t.Run("ok/bounded_by_workers", func(t *testing.T) {
		t.Parallel()
		p, err := scheduler.NewParallel(2, testOptions(t)...)
		require.NoError(t, err)
		defer p.Close()

		assert.Equal(t, 2, p.Workers())
		assert.Equal(t, "parallel", p.Name())
		peak := maxConcurrency(t, p, 8)
		assert.LessOrEqual(t, peak, int64(2))
		assert.GreaterOrEqual(t, peak, int64(1))
	})

	t.Run("ok/default_workers", func(t *testing.T) {
		t.Parallel()
		p, err := scheduler.NewParallel(0, testOptions(t)...)
		require.NoError(t, err)
		defer p.Close()
		assert.Positive(t, p.Workers())
	})

	t.Run("err/closed", func(t *testing.T) {
		t.Parallel()
		p, err := scheduler.NewParallel(1, testOptions(t)...)
		require.NoError(t, err)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())

		err = p.Submit(t.Context(), func() {})
		assert.ErrorIs(t, err, scheduler.ErrClosed)
	})

	t.Run("err/context_done_while_queue_full", func(t *testing.T) {
		t.Parallel()
		opts := append(testOptions(t), scheduler.WithQueueSize(1))
		p, err := scheduler.NewParallel(1, opts...)
		require.NoError(t, err)

		release := make(chan struct{})
		started := make(chan struct{})
		require.NoError(t, p.Submit(t.Context(), func() {
			close(started)
			<-release
		}))
		<-started
		// Fills the queue.
		require.NoError(t, p.Submit(t.Context(), func() {}))

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		err = p.Submit(ctx, func() {})
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		require.NoError(t, p.Close())
	})

	t.Run("err/invalid_option", func(t *testing.T) {
		t.Parallel()
		_, err := scheduler.NewParallel(1, scheduler.WithQueueSize(-1))
		assert.EqualError(t, err, "queue size must not be negative")
	})
}

func TestBoundedElastic(t *testing.T) {
	t.Parallel()

	t.Run("ok/bounded_by_limit", func(t *testing.T) {
		t.Parallel()
		be, err := scheduler.NewBoundedElastic(3, testOptions(t)...)
		require.NoError(t, err)
		defer be.Close()

		assert.Equal(t, 3, be.Limit())
		assert.Equal(t, "bounded-elastic", be.Name())
		peak := maxConcurrency(t, be, 12)
		assert.LessOrEqual(t, peak, int64(3))
	})

	t.Run("ok/custom_name", func(t *testing.T) {
		t.Parallel()
		opts := append(testOptions(t), scheduler.WithName("io"))
		be, err := scheduler.NewBoundedElastic(1, opts...)
		require.NoError(t, err)
		defer be.Close()
		assert.Equal(t, "io", be.Name())
	})

	t.Run("ok/close_waits_for_tasks", func(t *testing.T) {
		t.Parallel()
		be, err := scheduler.NewBoundedElastic(2, testOptions(t)...)
		require.NoError(t, err)

		var done atomic.Bool
		require.NoError(t, be.Submit(t.Context(), func() {
			time.Sleep(20 * time.Millisecond)
			done.Store(true)
		}))
		require.NoError(t, be.Close())
		assert.True(t, done.Load())

		err = be.Submit(t.Context(), func() {})
		assert.ErrorIs(t, err, scheduler.ErrClosed)
	})

	t.Run("ok/panic_does_not_kill_pool", func(t *testing.T) {
		t.Parallel()
		be, err := scheduler.NewBoundedElastic(1, testOptions(t)...)
		require.NoError(t, err)
		defer be.Close()

		require.NoError(t, be.Submit(t.Context(), func() { panic("boom") }))
		v, err := scheduler.Call(t.Context(), be, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})
}

func TestCall(t *testing.T) {
	t.Parallel()

	p, err := scheduler.NewParallel(2, testOptions(t)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	tests := []struct {
		name   string
		fn     func(context.Context) (string, error)
		exp    string
		expErr error
	}{
		{
			name: "ok/value",
			fn:   func(context.Context) (string, error) { return "hello", nil },
			exp:  "hello",
		},
		{
			name:   "err/returned",
			fn:     func(context.Context) (string, error) { return "", errors.New("failed") },
			expErr: errors.New("failed"),
		},
		{
			name:   "err/panic",
			fn:     func(context.Context) (string, error) { panic("boom") },
			expErr: scheduler.ErrTaskPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := scheduler.Call(t.Context(), p, tt.fn)
			if tt.expErr != nil {
				require.Error(t, err)
				if errors.Is(tt.expErr, scheduler.ErrTaskPanic) {
					assert.ErrorIs(t, err, scheduler.ErrTaskPanic)
					assert.Contains(t, err.Error(), "boom")
				} else {
					assert.EqualError(t, err, tt.expErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exp, v)
		})
	}

	t.Run("err/closed", func(t *testing.T) {
		t.Parallel()
		closed, err := scheduler.NewParallel(1, testOptions(t)...)
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		_, err = scheduler.Call(t.Context(), closed, func(context.Context) (int, error) { return 1, nil })
		assert.ErrorIs(t, err, scheduler.ErrClosed)
	})
}
