package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	aerrors "go.hackfix.me/rxplay/app/errors"
	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/db"
	"go.hackfix.me/rxplay/playground"
	"go.hackfix.me/rxplay/scheduler"
	"go.hackfix.me/rxplay/upload"
	"go.hackfix.me/rxplay/web/server"
	"go.hackfix.me/rxplay/web/server/api"
)

const shutdownTimeout = 10 * time.Second

// Serve starts the web server.
type Serve struct {
	Address string `arg:"" optional:"" help:"[host]:port to listen on."`

	ParallelWorkers int           `help:"Number of workers for CPU-bound work."`
	BlockingWorkers int           `help:"Maximum number of concurrent blocking tasks."`
	ItemDelay       time.Duration `help:"Simulated processing time of each /parallel-flux item."`
	UploadDir       string        `help:"Directory where uploaded files are stored."`
	MaxUploadSize   int64         `help:"Maximum size of an uploaded file in bytes."`
	DB              string        `help:"Path of the upload database."`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	logger := appCtx.Logger

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(appCtx.Metrics),
	}
	parallel, err := scheduler.NewParallel(c.ParallelWorkers, schedOpts...)
	if err != nil {
		return aerrors.NewWithCause("failed creating parallel scheduler", err)
	}
	defer closeWith(logger, "parallel scheduler", parallel.Close)

	blocking, err := scheduler.NewBoundedElastic(c.BlockingWorkers, schedOpts...)
	if err != nil {
		return aerrors.NewWithCause("failed creating blocking scheduler", err)
	}
	defer closeWith(logger, "blocking scheduler", blocking.Close)

	d, err := openDB(appCtx, c.DB)
	if err != nil {
		return err
	}
	if appCtx.DB == nil {
		defer closeWith(logger, "database", d.Close)
	}

	store, err := upload.NewStore(appCtx.FS, c.UploadDir, d,
		upload.WithMaxSize(c.MaxUploadSize),
		upload.WithLogger(logger),
		upload.WithMetrics(appCtx.Metrics),
	)
	if err != nil {
		return aerrors.NewWithCause("failed creating upload store", err, "dir", c.UploadDir)
	}

	pg, err := playground.New(parallel, blocking,
		playground.WithItemDelay(c.ItemDelay),
		playground.WithUploader(store),
		playground.WithLogger(logger),
	)
	if err != nil {
		return aerrors.NewWithCause("failed creating playground", err)
	}

	srv := server.New(appCtx, c.Address, api.Services{
		Playground:  pg,
		Uploads:     store,
		MetricsSink: appCtx.MetricsSink,
	})

	// Gracefully shutdown the server if a process signal is received, or the
	// main context is done.
	// See https://dev.to/mokiat/proper-http-shutdown-in-go-3fji
	srvDone := make(chan error, 1)
	go func() {
		srvErr := srv.ListenAndServe()
		slog.Debug("web server shutdown")
		srvDone <- srvErr
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		slog.Debug("process received signal", "signal", s)
	case <-appCtx.Ctx.Done():
		slog.Debug("app context is done")
	case srvErr := <-srvDone:
		if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			return aerrors.NewWithCause("web server error", srvErr, "address", c.Address)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(appCtx.Ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed shutting down web server: %w", err)
	}

	return nil
}

// openDB returns the database set in the app context, or opens the one at
// path. The database schema is created if it doesn't exist.
func openDB(appCtx *actx.Context, path string) (*db.DB, error) {
	d, err := connectDB(appCtx, path)
	if err != nil {
		return nil, err
	}

	if err = d.Init(appCtx.Version.Semantic, appCtx.Logger); err != nil {
		return nil, aerrors.NewWithCause("failed initializing database", err, "path", path)
	}

	return d, nil
}

// connectDB returns the database set in the app context, or opens the one at
// path without initializing it.
func connectDB(appCtx *actx.Context, path string) (*db.DB, error) {
	if appCtx.DB != nil {
		return appCtx.DB, nil
	}

	if err := appCtx.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed creating database directory: %w", err)
	}
	d, err := db.Open(appCtx.Ctx, path, appCtx.TimeNow)
	if err != nil {
		return nil, aerrors.NewWithCause("failed opening database", err, "path", path)
	}

	return d, nil
}

func closeWith(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("failed closing "+name, "error", err.Error())
	}
}
