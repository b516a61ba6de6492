package cli

import (
	"fmt"

	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/web/server/api"
)

// Routes lists the HTTP endpoints served by the serve command.
type Routes struct{}

// Run the routes command.
func (c *Routes) Run(appCtx *actx.Context) error {
	tbl := newTable("Method", "Path", "Description")
	for _, r := range api.Routes() {
		tbl.row(r.Method, r.Path, r.Description)
	}

	if err := tbl.render(appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering routes: %w", err)
	}

	return nil
}
