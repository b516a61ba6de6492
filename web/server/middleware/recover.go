package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.hackfix.me/rxplay/web/server/api/util"
	"go.hackfix.me/rxplay/web/server/types"
)

// Recover stops a panic in a handler from reaching the server, and answers
// the request with 500 Internal Server Error instead. Panics with
// http.ErrAbortHandler are propagated, since they're used to abort a response.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("recovered from panic",
					"panic", fmt.Sprint(rec),
					"request_id", types.RequestID(r.Context()),
					"stack", string(debug.Stack()),
				)
				_ = util.WriteText(w, http.StatusInternalServerError,
					fmt.Sprintf("Internal Server Error: %v", rec))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
