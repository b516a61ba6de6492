package playground

import (
	"errors"
	"log/slog"
	"time"
)

// DefaultItemDelay is the default simulated processing time of a single item
// in ParallelFlux.
const DefaultItemDelay = 500 * time.Millisecond

// Option is a function that allows configuring the Handlers.
type Option func(*Handlers) error

// WithItemDelay sets the simulated processing time of a single item in
// ParallelFlux.
func WithItemDelay(d time.Duration) Option {
	return func(h *Handlers) error {
		if d < 0 {
			return errors.New("item delay must not be negative")
		}
		h.itemDelay = d
		return nil
	}
}

// WithUploader sets the store for files received by FileUpload.
func WithUploader(u Uploader) Option {
	return func(h *Handlers) error {
		h.uploader = u
		return nil
	}
}

// WithLogger sets the logger used by the Handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) error {
		h.logger = logger.With("component", "playground")
		return nil
	}
}

// DefaultOptions returns the default Handlers options.
func DefaultOptions() []Option {
	return []Option{
		WithItemDelay(DefaultItemDelay),
		WithLogger(slog.Default()),
	}
}
