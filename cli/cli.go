package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/rxplay/app/config"
	actx "go.hackfix.me/rxplay/app/context"
)

// CLI is the command line interface of rxplay.
type CLI struct {
	Serve   Serve   `kong:"cmd,help='Start the web server.'"`
	Routes  Routes  `kong:"cmd,help='List the HTTP endpoints.'"`
	Uploads Uploads `kong:"cmd,help='List stored uploads.'"`
	Call    Call    `kong:"cmd,help='Request an endpoint of a running server.'"`
	Migrate Migrate `kong:"cmd,help='Apply or roll back upload database migrations.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: kong.ConfigFlag isn't used, since configuration is managed
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where application data is stored.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface. Flags can also be set with
// environment variables prefixed with the uppercased name, which are read from
// env if it's not nil.
func New(name, configFilePath, dataDir, version string, env actx.Environment) (*CLI, error) {
	c := &CLI{}
	opts := []kong.Option{
		kong.Name(name),
		kong.UsageOnError(),
		kong.DefaultEnvars(strings.ToUpper(name)),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
	}
	if env != nil {
		opts = append(opts, kong.Resolvers(envResolver(env)))
	}
	kparser, err := kong.New(c, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

func envResolver(env actx.Environment) kong.Resolver {
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range flag.Envs {
			if val, ok := env.Lookup(key); ok {
				return val, nil
			}
		}
		return nil, nil //nolint:nilnil // The flag isn't set in the environment.
	})
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Serve.Address == "" && cfg.Server.Address.Valid {
		c.Serve.Address = cfg.Server.Address.V
	}
	if c.Serve.ParallelWorkers == 0 && cfg.Scheduler.ParallelWorkers.Valid {
		c.Serve.ParallelWorkers = cfg.Scheduler.ParallelWorkers.V
	}
	if c.Serve.BlockingWorkers == 0 && cfg.Scheduler.BlockingWorkers.Valid {
		c.Serve.BlockingWorkers = cfg.Scheduler.BlockingWorkers.V
	}
	if c.Serve.ItemDelay == 0 && cfg.Playground.ItemDelay.Valid {
		c.Serve.ItemDelay = cfg.Playground.ItemDelay.V
	}
	if c.Serve.UploadDir == "" && cfg.Uploads.Dir.Valid {
		c.Serve.UploadDir = cfg.Uploads.Dir.V
	}
	if c.Serve.MaxUploadSize == 0 && cfg.Uploads.MaxSize.Valid {
		c.Serve.MaxUploadSize = cfg.Uploads.MaxSize.V
	}
	if c.Serve.DB == "" && cfg.Uploads.DB.Valid {
		c.Serve.DB = cfg.Uploads.DB.V
	}
	if c.Call.Address == "" && cfg.Server.Address.Valid {
		c.Call.Address = cfg.Server.Address.V
	}
	if c.Uploads.DB == "" && cfg.Uploads.DB.Valid {
		c.Uploads.DB = cfg.Uploads.DB.V
	}
	if c.Migrate.DB == "" && cfg.Uploads.DB.Valid {
		c.Migrate.DB = cfg.Uploads.DB.V
	}
}
