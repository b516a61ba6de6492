package middleware

import (
	"fmt"
	"net/http"
)

// Middleware wraps an http.Handler, running before and/or after it.
type Middleware func(http.Handler) http.Handler

// Chain composes items into a single handler. Items are Middleware values,
// plain func(http.Handler) http.Handler values, or an http.Handler, and run in
// the given order. An http.Handler ends the chain, so any items following it
// are never reached. If no handler is given, requests end with a 404 response.
func Chain(items ...any) http.Handler {
	var next http.Handler = http.NotFoundHandler()

	for i := len(items) - 1; i >= 0; i-- {
		switch v := items[i].(type) {
		case Middleware:
			next = v(next)
		case func(http.Handler) http.Handler:
			next = v(next)
		case http.Handler:
			next = v
		default:
			panic(fmt.Sprintf("middleware: unsupported chain item of type %T", v))
		}
	}

	return next
}
