package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"go.hackfix.me/rxplay/web/server/types"
)

// RequestIDHeader is the header that carries the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns an ID to each request, and stores it in the request
// context. An ID sent by the client is reused. The ID is echoed back in the
// response headers.
//
// It must run before Logger, so that the ID is available when the request is
// logged.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
		})
	}
}
