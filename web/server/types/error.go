package types

import (
	"errors"
	"fmt"
)

// Error is an error that should be reported to the client with a specific HTTP
// status code. Message is sent as the response body.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error Errorf wrapped, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError returns an Error with the given status code and message.
func NewError(statusCode int, message string) *Error {
	return &Error{StatusCode: statusCode, Message: message}
}

// Errorf returns an Error whose message is formatted as with fmt.Errorf. An
// error wrapped with %w remains reachable with errors.Is and errors.As.
func Errorf(statusCode int, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{StatusCode: statusCode, Message: err.Error(), cause: errors.Unwrap(err)}
}
