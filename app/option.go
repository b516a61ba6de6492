package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/vfs"

	cfg "go.hackfix.me/rxplay/app/config"
	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/db"
)

// Option is a function that allows configuring the application.
type Option func(*App)

// WithConfig sets the configuration object.
func WithConfig(cfg *cfg.Config) Option {
	return func(app *App) {
		app.ctx.Config = cfg
	}
}

// WithContext sets the main context.
func WithContext(ctx context.Context) Option {
	return func(app *App) {
		app.ctx.Ctx = ctx
	}
}

// WithDB sets the upload database, instead of opening the configured one.
func WithDB(d *db.DB) Option {
	return func(app *App) {
		app.ctx.DB = d
	}
}

// WithEnv sets the process environment used by the application.
func WithEnv(env actx.Environment) Option {
	return func(app *App) {
		app.ctx.Env = env
	}
}

// WithFDs sets the file descriptors used by the application.
func WithFDs(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *App) {
		app.ctx.Stdin = stdin
		app.ctx.Stdout = stdout
		app.ctx.Stderr = stderr
	}
}

// WithFS sets the filesystem used by the application.
func WithFS(fs vfs.FileSystem) Option {
	return func(app *App) {
		app.ctx.FS = fs
	}
}

// WithLogger sets up a logger that writes to the stderr set by WithFDs, so it
// must be passed after it. Colored output should only be enabled for
// terminals. The level can be changed with the --log-level flag.
func WithLogger(color bool) Option {
	return func(app *App) {
		lvl := &slog.LevelVar{}
		logger := slog.New(tint.NewHandler(app.ctx.Stderr, &tint.Options{
			Level:      lvl,
			NoColor:    !color,
			TimeFormat: time.DateTime + ".000",
		}))
		app.logLevel = lvl
		app.ctx.Logger = logger
		slog.SetDefault(logger)
	}
}

// WithMetrics sets up in-memory metrics. Runtime metrics are collected by a
// background goroutine, and can be disabled.
func WithMetrics(runtimeMetrics bool) Option {
	return func(app *App) {
		if err := app.initMetrics(runtimeMetrics); err != nil {
			app.ctx.Logger.Warn("metrics are disabled", "error", err.Error())
		}
	}
}

// WithTimeNow sets the function used to retrieve the current system time.
func WithTimeNow(timeNowFn func() time.Time) Option {
	return func(app *App) {
		app.ctx.TimeNow = timeNowFn
	}
}
