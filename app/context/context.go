package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rxplay/app/config"
	"go.hackfix.me/rxplay/db"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context  // global context
	FS      vfs.FileSystem   // filesystem
	Env     Environment      // process environment
	Logger  *slog.Logger     // global logger
	TimeNow func() time.Time // current system time

	Config *config.Config
	// DB is the upload database. If nil, it's opened by the commands that
	// need it.
	DB *db.DB

	// Metrics collects application metrics in MetricsSink.
	Metrics     *metrics.Metrics
	MetricsSink *metrics.InmemSink

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Metadata
	Version *VersionInfo
}
