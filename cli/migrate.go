package cli

import (
	"fmt"

	actx "go.hackfix.me/rxplay/app/context"
	aerrors "go.hackfix.me/rxplay/app/errors"
	"go.hackfix.me/rxplay/db/migrator"
)

// Migrate applies or rolls back the upload database schema.
type Migrate struct {
	Direction string `arg:"" optional:"" enum:"up,down" default:"up" help:"Apply (up) or roll back (down) migrations."`
	Target    string `default:"all" help:"ID of the last migration to run, or 'all'."`
	DB        string `help:"Path of the upload database."`
}

// Run the migrate command.
func (c *Migrate) Run(appCtx *actx.Context) error {
	d, err := connectDB(appCtx, c.DB)
	if err != nil {
		return err
	}
	if appCtx.DB == nil {
		defer closeWith(appCtx.Logger, "database", d.Close)
	}

	dir := migrator.Direction(c.Direction)
	if err = d.Migrate(dir, c.Target, appCtx.Logger); err != nil {
		return aerrors.NewWithCause("failed running migrations", err,
			"direction", c.Direction, "target", c.Target)
	}

	fmt.Fprintf(appCtx.Stdout, "Ran %s migrations up to %s\n", dir, c.Target)

	return nil
}
