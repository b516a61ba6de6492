// Package errors contains the error type returned by application commands,
// which carries structured metadata for logging.
package errors

import (
	"context"
	"errors"
	"log/slog"
)

// Log logs err at the error level. The cause and metadata of a StructuredError
// anywhere in the chain of err are logged as attributes. If logger is nil, the
// default slog logger is used.
func Log(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error())
		return
	}

	logger.LogAttrs(context.Background(), slog.LevelError, serr.Error(), serr.Attrs()...)
}
