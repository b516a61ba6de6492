package types

import (
	"errors"
	"fmt"

	"github.com/glebarez/go-sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNoResult is matched by errors returned when a record doesn't exist.
	ErrNoResult = errors.New("doesn't exist")
	// ErrDuplicate is matched by errors returned when a record with the same
	// unique key already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidInput is matched by errors returned when a query can't be built
	// from the model fields.
	ErrInvalidInput = errors.New("invalid input")
)

// RecordError reports a failed operation on a single model record.
type RecordError struct {
	Model string
	Key   string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s with %s %s", e.Model, e.Key, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NoResult returns an error for a lookup of model by key that matched nothing.
func NoResult(model, key string) error {
	return &RecordError{Model: model, Key: key, Err: ErrNoResult}
}

// InvalidInput returns an ErrInvalidInput error with the given detail.
func InvalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Err converts a unique constraint violation reported by SQLite into a
// RecordError matching ErrDuplicate. Other errors are returned unchanged.
func Err(model, key string, err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}

	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &RecordError{Model: model, Key: key, Err: ErrDuplicate}
	}

	return err
}
