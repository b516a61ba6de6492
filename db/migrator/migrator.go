package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"go.hackfix.me/rxplay/db/types"
)

// Direction is the direction in which migrations are applied.
type Direction string

// Supported migration directions.
const (
	MigrationUp   Direction = "up"
	MigrationDown Direction = "down"
)

// TargetAll makes RunMigrations apply every pending migration.
const TargetAll = "all"

// Migration is a single schema change.
type Migration struct {
	ID   string
	Name string
	Up   string
	Down string
}

// DB is the database the migrations are run on.
type DB interface {
	types.Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var fileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads all migration files at the root of dir, and returns them
// sorted by ID.
func LoadMigrations(dir fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	byID := map[string]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := fileRx.FindStringSubmatch(e.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name '%s'", e.Name())
		}
		id, name, dirn := match[1], match[2], Direction(match[3])

		data, err := fs.ReadFile(dir, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", e.Name(), err)
		}

		mig, ok := byID[id]
		if !ok {
			mig = &Migration{ID: id, Name: name}
			byID[id] = mig
		} else if mig.Name != name {
			return nil, fmt.Errorf("migration %s has conflicting names: '%s' and '%s'", id, mig.Name, name)
		}

		if dirn == MigrationUp {
			mig.Up = string(data)
		} else {
			mig.Down = string(data)
		}
	}

	migrations := make([]*Migration, 0, len(byID))
	for _, mig := range byID {
		if strings.TrimSpace(mig.Up) == "" {
			return nil, fmt.Errorf("migration %s-%s has no up statements", mig.ID, mig.Name)
		}
		migrations = append(migrations, mig)
	}
	slices.SortFunc(migrations, func(a, b *Migration) int {
		return strings.Compare(a.ID, b.ID)
	})

	return migrations, nil
}

// RunMigrations applies migrations in the given direction, up to and including
// the migration with ID target, or all of them if target is TargetAll. Applied
// migrations are recorded in the _migrations table, so running the same plan
// twice is a no-op. Each migration runs in its own transaction.
func RunMigrations(
	d DB, migrations []*Migration, dir Direction, target string, logger *slog.Logger,
) error {
	ctx := d.NewContext()

	_, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, d)
	if err != nil {
		return err
	}

	if target != TargetAll && !slices.ContainsFunc(migrations, func(m *Migration) bool {
		return m.ID == target
	}) {
		return fmt.Errorf("unknown migration target '%s'", target)
	}

	plan := slices.Clone(migrations)
	if dir == MigrationDown {
		slices.Reverse(plan)
	}

	for _, mig := range plan {
		_, isApplied := applied[mig.ID]
		switch {
		case dir == MigrationUp && !isApplied:
			if err = apply(ctx, d, mig, mig.Up, `INSERT INTO _migrations (id, name, applied_at) VALUES (?, ?, ?)`,
				mig.ID, mig.Name, d.TimeNow().UTC()); err != nil {
				return err
			}
			logger.Debug("applied migration", "id", mig.ID, "name", mig.Name)
		case dir == MigrationDown && isApplied:
			if err = apply(ctx, d, mig, mig.Down, `DELETE FROM _migrations WHERE id = ?`, mig.ID); err != nil {
				return err
			}
			logger.Debug("rolled back migration", "id", mig.ID, "name", mig.Name)
		}

		if mig.ID == target {
			break
		}
	}

	return nil
}

func apply(ctx context.Context, d DB, mig *Migration, stmts, record string, args ...any) (rerr error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback()
		}
	}()

	if strings.TrimSpace(stmts) != "" {
		if _, err = tx.ExecContext(ctx, stmts); err != nil {
			return fmt.Errorf("failed running migration %s-%s: %w", mig.ID, mig.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("failed recording migration %s-%s: %w", mig.ID, mig.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed committing migration %s-%s: %w", mig.ID, mig.Name, err)
	}

	return nil
}

func appliedMigrations(ctx context.Context, d types.Querier) (_ map[string]struct{}, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT id FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed querying applied migrations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("failed closing migrations rows: %w", err)
		}
	}()

	applied := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed scanning migration ID: %w", err)
		}
		applied[id] = struct{}{}
	}

	return applied, rows.Err()
}
