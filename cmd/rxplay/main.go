package main

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/rxplay/app"
	actx "go.hackfix.me/rxplay/app/context"
	aerrors "go.hackfix.me/rxplay/app/errors"
)

func main() {
	a, err := app.New("rxplay",
		filepath.Join(xdg.ConfigHome, "rxplay", "config.json"),
		filepath.Join(xdg.DataHome, "rxplay"),
		app.WithEnv(osEnv{}),
		app.WithFDs(
			os.Stdin,
			colorable.NewColorable(os.Stdout),
			colorable.NewColorable(os.Stderr),
		),
		app.WithFS(osfs.New()),
		app.WithLogger(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())),
		app.WithMetrics(true),
	)
	if err != nil {
		aerrors.Log(nil, err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Log(nil, err)
		os.Exit(1)
	}
}

type osEnv struct{}

var _ actx.Environment = &osEnv{}

func (e osEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}
