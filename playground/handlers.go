// Package playground contains the demonstration pipelines served over HTTP.
// Each method returns a pipeline description; nothing runs until the caller
// subscribes to it.
package playground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dbm "go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/models"
	"go.hackfix.me/rxplay/reactive"
	"go.hackfix.me/rxplay/scheduler"
)

// ResponseDelay is the delay applied by DelayedResponse.
const ResponseDelay = 2 * time.Second

// Uploader stores uploaded files.
type Uploader interface {
	Save(ctx context.Context, part models.FilePart) (*dbm.Upload, error)
}

// Handlers builds the demonstration pipelines. It owns the cached value
// returned by MonoWithCache.
type Handlers struct {
	parallel  scheduler.Scheduler
	blocking  scheduler.Scheduler
	itemDelay time.Duration
	uploader  Uploader
	logger    *slog.Logger

	cached reactive.Mono[string]
}

// New returns a new Handlers instance. CPU-bound work is published on the
// parallel scheduler, and blocking work on the blocking one.
func New(parallel, blocking scheduler.Scheduler, opts ...Option) (*Handlers, error) {
	if parallel == nil || blocking == nil {
		return nil, errors.New("parallel and blocking schedulers are required")
	}

	h := &Handlers{parallel: parallel, blocking: blocking}

	opts = append(DefaultOptions(), opts...)
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	h.cached = reactive.FromFunc(func(context.Context) (string, error) {
		return "This is a cached value!", nil
	}).
		DoOnTerminate(func() { h.logger.Info("Cache has been populated!") }).
		Cache()

	return h, nil
}

// Mono produces a single value.
func (h *Handlers) Mono() reactive.Mono[string] {
	h.logger.Info("handling Mono example")
	return reactive.Just("Mono: Hello, this is a single item").
		DoOnTerminate(func() { h.logger.Info("Mono operation completed") })
}

// Flux produces a fixed sequence of three values.
func (h *Handlers) Flux() reactive.Flux[string] {
	h.logger.Info("handling Flux example")
	return reactive.FluxOf("Flux: Item 1", "Flux: Item 2", "Flux: Item 3").
		DoOnTerminate(func() { h.logger.Info("Flux operation completed") })
}

// Backpressure produces the integers 1 to 1000, with at most 10 values
// produced ahead of the subscriber.
func (h *Handlers) Backpressure() reactive.Flux[int] {
	h.logger.Info("handling Backpressure example")
	return reactive.Range(1, 1000).
		DoOnNext(func(i int) { h.logger.Debug("onNext", "value", i) }).
		DoOnTerminate(func() { h.logger.Info("Backpressure operation completed") }).
		LimitRate(10)
}

// Parallel publishes the integers 1 to 5 on the parallel scheduler, and
// transforms them there.
func (h *Handlers) Parallel() reactive.Flux[string] {
	h.logger.Info("handling Parallel processing example")
	src := reactive.Range(1, 5).
		DoOnNext(func(i int) { h.logger.Info("processing item", "item", i) }).
		PublishOn(h.parallel)
	return reactive.MapFlux(src, func(i int) string {
		return fmt.Sprintf("Parallel Item: %d", i)
	})
}

// MonoWithError fails with a NotFoundError, and recovers with a fallback value.
func (h *Handlers) MonoWithError() reactive.Mono[string] {
	h.logger.Info("handling Mono example with error")
	return reactive.Fail[string](models.NewNotFoundError("Custom Resource Not Found")).
		OnErrorResume(func(err error) reactive.Mono[string] {
			h.logger.Error("error occurred", "error", err)
			return reactive.Just("Fallback Value: Resource not found")
		}).
		DoOnTerminate(func() { h.logger.Info("Mono operation completed with error handling") })
}

// FluxWithError produces three values and then fails with a NotFoundError. The
// failed sequence is replaced entirely by a fallback sequence.
func (h *Handlers) FluxWithError() reactive.Flux[string] {
	h.logger.Info("handling Flux example with error")
	return reactive.FluxOf("Item 1", "Item 2", "Item 3").
		ConcatWith(reactive.FluxError[string](models.NewNotFoundError("Custom Resource Not Found"))).
		OnErrorResume(func(err error) reactive.Flux[string] {
			h.logger.Error("error occurred", "error", err)
			return reactive.FluxOf("Fallback Item 1", "Fallback Item 2")
		}).
		DoOnTerminate(func() { h.logger.Info("Flux operation completed with error handling") })
}

// TriggerGlobalError always fails with a RuntimeError, which is left for the
// HTTP error handler to report.
func (h *Handlers) TriggerGlobalError() reactive.Mono[string] {
	h.logger.Info("handling global error example")
	return reactive.Fail[string](
		models.NewRuntimeError("This is a test exception to trigger the global handler."))
}

// MonoWithCache returns the cached value. It's computed once, by the first
// subscriber.
func (h *Handlers) MonoWithCache() reactive.Mono[string] {
	return h.cached
}

// FluxWithFallback chains a failing step after a value, and recovers with a
// fallback value.
func (h *Handlers) FluxWithFallback() reactive.Mono[string] {
	return reactive.FlatMapMono(reactive.Just("Starting stream"), func(string) reactive.Mono[string] {
		return reactive.Fail[string](models.NewRuntimeError("Something went wrong!"))
	}).
		OnErrorResume(func(err error) reactive.Mono[string] {
			h.logger.Error("error occurred", "error", err)
			return reactive.Just("Fallback value in case of error")
		})
}

// MonoWithMap transforms a value synchronously.
func (h *Handlers) MonoWithMap() reactive.Mono[string] {
	return reactive.MapMono(reactive.Just("Original Value"), func(v string) string {
		return v + " - Transformed Value using map()"
	})
}

// MonoWithFlatMap chains an asynchronous step after a value.
func (h *Handlers) MonoWithFlatMap() reactive.Mono[string] {
	return reactive.FlatMapMono(reactive.Just("Initial Data"), func(v string) reactive.Mono[string] {
		return reactive.FromFunc(func(context.Context) (string, error) {
			return v + " - Processed Asynchronously", nil
		})
	})
}

// MonoWithSideEffects logs the lifecycle events of a single value.
func (h *Handlers) MonoWithSideEffects() reactive.Mono[string] {
	return reactive.Just("Value for side effects").
		DoOnNext(func(v string) { h.logger.Info("received value", "value", v) }).
		DoOnError(func(err error) { h.logger.Error("error encountered", "error", err) }).
		DoOnTerminate(func() { h.logger.Info("stream has completed") })
}

// MonoZip combines two independently produced values.
func (h *Handlers) MonoZip() reactive.Mono[string] {
	return reactive.ZipMono(reactive.Just("First Value"), reactive.Just("Second Value"),
		func(first, second string) string {
			return first + " + " + second
		})
}

// FluxZip combines two sequences pairwise.
func (h *Handlers) FluxZip() reactive.Flux[string] {
	return reactive.ZipFlux(reactive.FluxOf("A", "B", "C"), reactive.FluxOf("1", "2", "3"),
		func(first, second string) string {
			return first + second
		})
}

// ParallelFlux processes four items concurrently on the blocking scheduler,
// each taking the configured item delay. The results keep the input order.
func (h *Handlers) ParallelFlux() reactive.Flux[string] {
	items := []string{"Item1", "Item2", "Item3", "Item4"}
	return reactive.ParallelMap(reactive.FluxOf(items...), h.blocking, len(items), h.processItem)
}

// FileUpload logs the received part and stores it, if an Uploader was
// configured.
func (h *Handlers) FileUpload(part models.FilePart) reactive.Mono[string] {
	store := reactive.FromRunnable(func(ctx context.Context) error {
		h.logger.Info("received file", "name", part.Name, "filename", part.Filename)
		h.logger.Info("file size", "bytes", part.Size)

		if h.uploader == nil {
			return nil
		}
		up, err := h.uploader.Save(ctx, part)
		if err != nil {
			return &models.RuntimeError{Msg: "Error processing file upload", Err: err}
		}
		h.logger.Info("stored file", "id", up.ID, "digest", up.Digest)

		return nil
	})

	return reactive.Then(store.SubscribeOn(h.blocking), reactive.Just("File uploaded successfully!"))
}

// DelayedResponse produces msg after ResponseDelay.
func (h *Handlers) DelayedResponse(msg string) reactive.Mono[string] {
	return reactive.Just(msg).DelayElement(ResponseDelay)
}

func (h *Handlers) processItem(ctx context.Context, item string) (string, error) {
	timer := time.NewTimer(h.itemDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		h.logger.Error("error occurred", "error", ctx.Err())
		return "", ctx.Err()
	}

	return item + " processed", nil
}
