// Package api contains the HTTP endpoints that expose the playground
// pipelines.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-metrics"
	"github.com/mandelsoft/vfs/pkg/vfs"

	dbm "go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/playground"
	"go.hackfix.me/rxplay/web/server/handler"
)

// UploadStore gives access to stored uploads.
type UploadStore interface {
	// List returns upload records, newest first.
	List(ctx context.Context, limit int) ([]*dbm.Upload, error)
	Open(ctx context.Context, id string) (*dbm.Upload, vfs.File, error)
	Delete(ctx context.Context, id string) error
	// MaxSize is the maximum number of bytes stored per upload.
	MaxSize() int64
}

// Services are the dependencies of the API endpoints. Playground is required.
// Without Uploads, listing returns no results and single uploads are not
// found. Without MetricsSink, the metrics endpoint responds with 404 Not Found.
type Services struct {
	Playground  *playground.Handlers
	Uploads     UploadStore
	MetricsSink *metrics.InmemSink
}

// Route describes an API endpoint.
type Route struct {
	Method      string
	Path        string
	Description string
}

// Pattern returns the ServeMux pattern of the route.
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

type route struct {
	Route
	handler func(svc Services, p *handler.Pipeline) http.Handler
}

var routes = []route{
	{
		Route{http.MethodGet, "/mono", "Single value"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.Mono, p) },
	},
	{
		Route{http.MethodGet, "/flux", "Sequence of three values"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.Flux, p) },
	},
	{
		Route{http.MethodGet, "/backpressure", "Integers 1 to 1000 produced at a limited rate"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.Backpressure, p) },
	},
	{
		Route{http.MethodGet, "/parallel", "Sequence published on the parallel scheduler"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.Parallel, p) },
	},
	{
		Route{http.MethodGet, "/mono-error", "Failed single value recovered with a fallback"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.MonoWithError, p) },
	},
	{
		Route{http.MethodGet, "/flux-error", "Failed sequence replaced by a fallback sequence"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.FluxWithError, p) },
	},
	{
		Route{http.MethodGet, "/trigger-global-error", "Unhandled failure reported by the error mapper"},
		func(svc Services, p *handler.Pipeline) http.Handler {
			return single(svc.Playground.TriggerGlobalError, p)
		},
	},
	{
		Route{http.MethodGet, "/mono-with-cache", "Value computed once and cached"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.MonoWithCache, p) },
	},
	{
		Route{http.MethodGet, "/flux-error-with-fallback", "Failed chained step recovered with a fallback"},
		func(svc Services, p *handler.Pipeline) http.Handler {
			return single(svc.Playground.FluxWithFallback, p)
		},
	},
	{
		Route{http.MethodGet, "/mono-map", "Synchronous transformation"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.MonoWithMap, p) },
	},
	{
		Route{http.MethodGet, "/mono-flatmap", "Asynchronous chained step"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.MonoWithFlatMap, p) },
	},
	{
		Route{http.MethodGet, "/mono-side-effects", "Lifecycle events logged"},
		func(svc Services, p *handler.Pipeline) http.Handler {
			return single(svc.Playground.MonoWithSideEffects, p)
		},
	},
	{
		Route{http.MethodGet, "/mono-zip", "Two values combined"},
		func(svc Services, p *handler.Pipeline) http.Handler { return single(svc.Playground.MonoZip, p) },
	},
	{
		Route{http.MethodGet, "/flux-zip", "Two sequences combined pairwise"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.FluxZip, p) },
	},
	{
		Route{http.MethodGet, "/parallel-flux", "Items processed concurrently, in input order"},
		func(svc Services, p *handler.Pipeline) http.Handler { return many(svc.Playground.ParallelFlux, p) },
	},
	{
		Route{http.MethodPost, "/upload", "Multipart file upload in the 'file' field"},
		func(svc Services, p *handler.Pipeline) http.Handler {
			return uploadFile(svc.Playground, svc.Uploads, p)
		},
	},
	{
		Route{http.MethodGet, "/uploads", "Stored uploads, newest first"},
		func(svc Services, p *handler.Pipeline) http.Handler { return listUploads(svc.Uploads, p) },
	},
	{
		Route{http.MethodGet, "/uploads/{id}", "Content of a stored upload"},
		func(svc Services, p *handler.Pipeline) http.Handler { return downloadUpload(svc.Uploads, p) },
	},
	{
		Route{http.MethodDelete, "/uploads/{id}", "Delete a stored upload"},
		func(svc Services, p *handler.Pipeline) http.Handler { return deleteUpload(svc.Uploads, p) },
	},
	{
		Route{http.MethodGet, "/debug/metrics", "Snapshot of the in-memory metrics"},
		func(svc Services, p *handler.Pipeline) http.Handler { return metricsSnapshot(svc.MetricsSink, p) },
	},
}

// Routes returns the API route table.
func Routes() []Route {
	rs := make([]Route, len(routes))
	for i, r := range routes {
		rs[i] = r.Route
	}
	return rs
}

// SetupHandlers configures the API HTTP handlers.
func SetupHandlers(svc Services, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	p := handler.NewPipeline().
		ProcessRequest(handler.Trace(logger)).
		ProcessResponse(handler.NoStore).
		Log(logger)

	for _, r := range routes {
		mux.Handle(r.Pattern(), r.handler(svc, p))
	}

	return mux
}
