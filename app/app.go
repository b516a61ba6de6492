package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/rxplay/app/config"
	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/cli"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application. The configuration file is read from
// configFilePath, and application data is stored in dataDir, unless
// overridden via the CLI.
func New(name, configFilePath, dataDir string, opts ...Option) (*App, error) {
	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: actx.GetVersion(),
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	if app.ctx.Metrics == nil {
		if err := app.initMetrics(true); err != nil {
			return nil, err
		}
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	var err error
	app.cli, err = cli.New(app.name, configFilePath, dataDir, ver, app.ctx.Env)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
		if err := cfg.Load(); err != nil {
			return err
		}
		app.ctx.Config = cfg
	}
	app.ctx.Config.SetDefaults(app.cli.DataDir)
	app.cli.ApplyConfig(app.ctx.Config)

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}

// initMetrics sets up in-memory metrics, which are served by the
// /debug/metrics endpoint.
func (app *App) initMetrics(runtimeMetrics bool) error {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := metrics.DefaultConfig(app.name)
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = runtimeMetrics
	m, err := metrics.New(cfg, sink)
	if err != nil {
		return fmt.Errorf("failed initializing metrics: %w", err)
	}

	app.ctx.Metrics = m
	app.ctx.MetricsSink = sink

	return nil
}
