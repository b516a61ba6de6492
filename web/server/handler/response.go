package handler

import (
	"context"
	"errors"
	"net/http"

	"go.hackfix.me/rxplay/web/server/types"
)

// ResponseProcessor processes outgoing responses and can modify the response or context.
type ResponseProcessor func(ctx context.Context, resp types.Response) (context.Context, error)

// NoStore prevents clients and proxies from caching the response. Every
// request runs its pipeline again, so cached responses would hide that.
func NoStore(ctx context.Context, resp types.Response) (context.Context, error) {
	resp.GetHeader().Set("Cache-Control", "no-store")
	return ctx, nil
}

func writeResponse(ctx context.Context, w http.ResponseWriter, resp types.Response) error {
	data := getResponseData(ctx)

	// Errors are reported as plain text messages.
	var terr *types.Error
	if errors.As(resp.GetError(), &terr) {
		data = []byte(terr.Message)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	status := resp.GetStatusCode()
	w.WriteHeader(status)
	if status == http.StatusNoContent || status == http.StatusNotModified {
		return nil
	}
	_, err := w.Write(data)

	return err //nolint:wrapcheck // Wrapped by caller.
}
