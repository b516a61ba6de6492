package scheduler

import (
	"errors"
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

type config struct {
	name      string
	queueSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func (c *config) pool() pool {
	return pool{
		name:    c.name,
		logger:  c.logger.With("scheduler", c.name),
		metrics: c.metrics,
	}
}

// Option is a function that allows configuring a pool.
type Option func(*config) error

// WithName overrides the pool name used in logs and metric keys.
func WithName(name string) Option {
	return func(c *config) error {
		if name == "" {
			return errors.New("pool name must not be empty")
		}
		c.name = name
		return nil
	}
}

// WithQueueSize sets the task queue capacity of a Parallel pool. It defaults
// to the number of workers. BoundedElastic pools ignore it.
func WithQueueSize(size int) Option {
	return func(c *config) error {
		if size < 0 {
			return errors.New("queue size must not be negative")
		}
		c.queueSize = size
		return nil
	}
}

// WithLogger sets the logger used by the pool.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		c.logger = logger.With("component", "scheduler")
		return nil
	}
}

// WithMetrics sets the sink for task counters and timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

func defaultOptions() []Option {
	return []Option{
		WithLogger(slog.Default()),
		WithMetrics(metrics.Default()),
	}
}
