package util

import (
	"net/http"
)

// WriteText writes a plain text response with the given HTTP status code.
func WriteText(w http.ResponseWriter, statusCode int, msg string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)

	_, err := w.Write([]byte(msg))
	return err //nolint:wrapcheck // Wrapped by caller.
}
