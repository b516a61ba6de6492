package reactive

import (
	"errors"
	"fmt"
)

// ErrPanic wraps the value of a panic recovered from a user function.
var ErrPanic = errors.New("reactive: function panicked")

// recoverInto converts a panic into an error assigned to err. It must be
// deferred directly.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}
