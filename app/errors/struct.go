package errors

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
)

// StructuredError is an error with an optional cause and key/value metadata,
// which Log renders as separate attributes.
type StructuredError struct {
	err      error
	cause    error
	metadata map[string]any
}

func (e *StructuredError) Error() string {
	return e.err.Error()
}

// Unwrap returns the error and its cause, so that both are matched by
// errors.Is and errors.As.
func (e *StructuredError) Unwrap() []error {
	return slices.DeleteFunc([]error{e.err, e.cause}, func(err error) bool {
		return err == nil
	})
}

// Cause returns the error that caused this one, if any.
func (e *StructuredError) Cause() error {
	return e.cause
}

// Metadata returns a copy of the error metadata.
func (e *StructuredError) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

// Attrs returns the cause and metadata as log attributes. The cause is always
// first, followed by metadata sorted by key.
func (e *StructuredError) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.metadata)+1)
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	for _, k := range slices.Sorted(maps.Keys(e.metadata)) {
		attrs = append(attrs, slog.Any(k, e.metadata[k]))
	}
	return attrs
}

// NewWith returns a StructuredError with the message msg and metadata fields,
// given as alternating string keys and values.
func NewWith(msg string, fields ...any) *StructuredError {
	return With(errors.New(msg), fields...)
}

// NewWithCause is like NewWith, but also records the cause of the error.
func NewWithCause(msg string, cause error, fields ...any) *StructuredError {
	serr := With(errors.New(msg), fields...)
	serr.cause = cause
	return serr
}

// With adds metadata fields to err. If err is a StructuredError, a copy of it is
// returned with the fields merged into its metadata, overwriting existing keys.
func With(err error, fields ...any) *StructuredError {
	if len(fields)%2 != 0 {
		panic("an even number of fields is required")
	}

	serr := &StructuredError{err: err, metadata: make(map[string]any, len(fields)/2)}
	if se, ok := err.(*StructuredError); ok {
		serr.err, serr.cause = se.err, se.cause
		maps.Copy(serr.metadata, se.metadata)
	}

	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			panic("keys must be strings")
		}
		serr.metadata[key] = fields[i+1]
	}

	return serr
}
