package cli

import (
	"fmt"
	"strconv"
	"time"

	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/db/queries"
	"go.hackfix.me/rxplay/db/types"
)

// Uploads lists the uploads recorded in the database.
type Uploads struct {
	Limit int    `default:"20" help:"Maximum number of uploads to list. 0 lists all of them."`
	Stats bool   `help:"Only print the number of uploads and their total size."`
	DB    string `help:"Path of the upload database."`
}

// Run the uploads command.
func (c *Uploads) Run(appCtx *actx.Context) error {
	if c.Limit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", c.Limit)
	}

	d, err := openDB(appCtx, c.DB)
	if err != nil {
		return err
	}
	if appCtx.DB == nil {
		defer closeWith(appCtx.Logger, "database", d.Close)
	}

	if c.Stats {
		count, total, err := queries.UploadStats(d.NewContext(), d)
		if err != nil {
			return fmt.Errorf("failed reading upload stats: %w", err)
		}
		fmt.Fprintf(appCtx.Stdout, "%d uploads, %d bytes\n", count, total)
		return nil
	}

	ups, err := models.Uploads(d.NewContext(), d, &types.Filter{Limit: c.Limit})
	if err != nil {
		return fmt.Errorf("failed listing uploads: %w", err)
	}

	tbl := newTable("ID", "Filename", "Size", "Created", "Digest")
	for _, up := range ups {
		size := "unknown"
		if up.Size >= 0 {
			size = strconv.FormatInt(up.Size, 10)
		}
		tbl.row(up.ID, up.Filename, size, up.CreatedAt.Format(time.DateTime), up.Digest)
	}

	if err = tbl.render(appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering uploads: %w", err)
	}

	return nil
}
