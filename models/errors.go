package models

import "fmt"

// NotFoundError is returned when a requested resource doesn't exist.
type NotFoundError struct {
	Msg string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return e.Msg
}

// NewNotFoundError returns a NotFoundError with a formatted message.
func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// RuntimeError is an unexpected failure raised while a pipeline is running.
type RuntimeError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError returns a RuntimeError with a formatted message.
func NewRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
