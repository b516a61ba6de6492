package cli

import (
	"fmt"
	"path/filepath"

	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/web/client"
)

// Call requests an endpoint of a running server, and prints the response.
type Call struct {
	Path    string `arg:"" help:"Endpoint path, e.g. /mono."`
	Address string `help:"[host]:port of the server."`
	File    string `help:"Upload this file to the endpoint as a multipart form."`
}

// Run the call command.
func (c *Call) Run(appCtx *actx.Context) error {
	cl := client.New(c.Address, appCtx.Logger)

	var (
		body []byte
		err  error
	)
	if c.File != "" {
		f, ferr := appCtx.FS.Open(c.File)
		if ferr != nil {
			return fmt.Errorf("failed opening file: %w", ferr)
		}
		defer f.Close()
		body, err = cl.Upload(appCtx.Ctx, c.Path, filepath.Base(c.File), f)
	} else {
		body, err = cl.Get(appCtx.Ctx, c.Path)
	}
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintln(appCtx.Stdout, string(body)); err != nil {
		return fmt.Errorf("failed writing response: %w", err)
	}

	return nil
}
