package handler

import (
	"context"
	"log/slog"

	"go.hackfix.me/rxplay/web/server/types"
)

// RequestProcessor processes incoming requests and can modify the request or context.
type RequestProcessor func(ctx context.Context, req types.Request) (context.Context, error)

// Trace logs each request that reached the handler at debug level.
func Trace(logger *slog.Logger) RequestProcessor {
	return func(ctx context.Context, req types.Request) (context.Context, error) {
		r := req.GetHTTPRequest()
		logger.Debug("handling request",
			"method", r.Method, "path", r.URL.Path, "request_id", types.RequestID(ctx))
		return ctx, nil
	}
}
