package upload

import (
	"errors"
	"log/slog"

	"github.com/hashicorp/go-metrics"
	"github.com/nrednav/cuid2"
)

// DefaultMaxSize is the default maximum size of a single upload.
const DefaultMaxSize = 32 << 20

// Option is a function that allows configuring the Store.
type Option func(*Store) error

// WithMaxSize sets the maximum number of bytes stored per upload.
func WithMaxSize(size int64) Option {
	return func(s *Store) error {
		if size <= 0 {
			return errors.New("maximum upload size must be positive")
		}
		s.maxSize = size
		return nil
	}
}

// WithIDGenerator sets the function that generates upload IDs. The IDs are
// used as file names, so they must be unique and safe to use in paths.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) error {
		s.idGen = gen
		return nil
	}
}

// WithLogger sets the logger used by the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger.With("component", "upload")
		return nil
	}
}

// WithMetrics sets the sink for upload counters and timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) error {
		s.metrics = m
		return nil
	}
}

// DefaultOptions returns the default Store options.
func DefaultOptions() []Option {
	return []Option{
		WithMaxSize(DefaultMaxSize),
		WithIDGenerator(cuid2.Generate),
		WithLogger(slog.Default()),
		WithMetrics(metrics.Default()),
	}
}
