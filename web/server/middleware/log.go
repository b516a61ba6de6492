package middleware

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"go.hackfix.me/rxplay/web/server/types"
)

// Logger writes an access log entry once each request is served. Responses
// with a 5xx status code are logged as warnings.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			if m.Code >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, r.Method+" "+r.URL.String(),
				slog.Int("response_code", m.Code),
				slog.Duration("duration", m.Duration),
				slog.Int64("bytes_sent", m.Written),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", types.RequestID(r.Context())),
			)
		})
	}
}
