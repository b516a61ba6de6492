package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/rxplay/db/migrator"
	"go.hackfix.me/rxplay/db/queries"
	"go.hackfix.me/rxplay/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps sql.DB with additional context and migration functionality.
type DB struct {
	*sql.DB
	ctx        context.Context
	timeNow    func() time.Time
	path       string
	migrations []*migrator.Migration
}

var (
	_ types.Querier = (*DB)(nil)
	_ migrator.DB   = (*DB)(nil)
)

// Init creates the database schema, and records the application version the
// database was created with. It's safe to call on an already initialized
// database, in which case only pending migrations are applied.
func (d *DB) Init(appVersion string, logger *slog.Logger) error {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("initializing database")

	if err := d.Migrate(migrator.MigrationUp, migrator.TargetAll, dblogger); err != nil {
		return err
	}

	ctx := d.NewContext()
	version, err := queries.Version(ctx, d)
	if err != nil {
		return fmt.Errorf("failed reading database version: %w", err)
	}
	if version.Valid {
		dblogger.Debug("database already initialized", "version", version.V)
		return nil
	}

	_, err = d.ExecContext(ctx, `INSERT INTO _meta (version) VALUES (?)`, appVersion)
	if err != nil {
		return fmt.Errorf("failed inserting into _meta: %w", err)
	}

	dblogger.Info("database initialized")

	return nil
}

// Migrate applies the embedded migrations in the given direction, up to and
// including target.
func (d *DB) Migrate(dir migrator.Direction, target string, logger *slog.Logger) error {
	return migrator.RunMigrations(d, d.migrations, dir, target, logger)
}

// NewContext returns the main database context. Queries run with it are
// cancelled once the context passed to Open is done.
func (d *DB) NewContext() context.Context {
	return d.ctx
}

// Open creates and configures a new SQLite database connection with migrations support.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	var d *DB
	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		defer func() {
			if d != nil {
				// An in-memory database is gone once its last connection is
				// closed, so keep idle connections around.
				d.SetMaxIdleConns(10)
				d.SetConnMaxLifetime(time.Duration(math.Inf(1)))
			}
		}()
	}

	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	d = &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}

	_, err = d.Exec(`PRAGMA foreign_keys = ON;`)
	if err != nil {
		return nil, fmt.Errorf("failed enabling foreign key enforcement: %w", err)
	}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	d.migrations = migrations

	return d, nil
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}
