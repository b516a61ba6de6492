package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError(t *testing.T) {
	t.Parallel()

	cause := errors.New("address already in use")
	err := NewWithCause("failed starting server", cause, "address", ":8080")
	err = With(err, "attempt", 2, "address", ":9090")

	assert.Equal(t, "failed starting server", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Cause())
	assert.Equal(t, map[string]any{"address": ":9090", "attempt": 2}, err.Metadata())

	wrapped := fmt.Errorf("serve: %w", err)
	var serr *StructuredError
	assert.True(t, errors.As(wrapped, &serr))

	assert.Panics(t, func() { NewWith("odd", "key") })
	assert.Panics(t, func() { NewWith("bad key", 1, "value") })
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	Log(logger, NewWithCause("failed opening database", errors.New("disk full"),
		"path", "/data/rxplay.db", "attempt", 1))
	assert.Equal(t,
		`level=ERROR msg="failed opening database" cause="disk full" attempt=1 path=/data/rxplay.db`+"\n",
		buf.String())

	buf.Reset()
	Log(logger, errors.New("plain error"))
	assert.Equal(t, `level=ERROR msg="plain error"`+"\n", buf.String())
}
