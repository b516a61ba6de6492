package handler

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"

	"go.hackfix.me/rxplay/web/server/types"
)

// Handle returns an HTTP handler that runs fn with a typed request, and writes
// its typed response, both passed through the stages configured in p:
//
//  1. the request is deserialized, then validated if it implements
//     Validate() error, then passed to the request processors;
//  2. fn is called;
//  3. the response is serialized unless it carries an error, then passed to
//     the response processors, and written.
//
// An error at any stage skips the remaining request stages, and is mapped to
// an HTTP error with MapError. Requests that implement Cleanup() error are
// cleaned up before the response is written, even if decoding failed.
//
// Req and Resp must be pointer types, since new instances are created with
// reflection for every request.
func Handle[Req types.Request, Resp types.Response](
	fn func(context.Context, Req) (Resp, error),
	p *Pipeline,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex := &exchange[Req, Resp]{
			ctx:  r.Context(),
			req:  createInstance[Req](),
			resp: createInstance[Resp](),
			p:    p,
		}
		ex.logger = p.logger.With("method", r.Method, "path", r.URL.Path)
		if id := types.RequestID(ex.ctx); id != "" {
			ex.logger = ex.logger.With("request_id", id)
		}
		ex.req.SetHTTPRequest(r)

		defer ex.respond(w)
		defer ex.cleanup()

		if !ex.decode() || !ex.prepare() {
			return
		}

		resp, err := fn(ex.ctx, ex.req)
		if !isNilResponse(resp) {
			ex.resp = resp
		}
		ex.fail(err)
	}
}

// exchange holds the state of a single request as it moves through a Pipeline.
type exchange[Req types.Request, Resp types.Response] struct {
	ctx    context.Context
	req    Req
	resp   Resp
	p      *Pipeline
	logger *slog.Logger
}

func (ex *exchange[Req, Resp]) decode() bool {
	if ex.p.serializer == nil {
		return true
	}
	var err error
	ex.ctx, err = ex.p.serializer.Deserialize(ex.ctx, ex.req)
	return !ex.fail(err)
}

// cleanup releases resources acquired while decoding, e.g. uploaded files.
func (ex *exchange[Req, Resp]) cleanup() {
	c, ok := any(ex.req).(interface{ Cleanup() error })
	if !ok {
		return
	}
	if err := c.Cleanup(); err != nil {
		ex.logger.Warn("failed cleaning up request", "error", err.Error())
	}
}

func (ex *exchange[Req, Resp]) prepare() bool {
	if v, ok := any(ex.req).(interface{ Validate() error }); ok {
		if ex.fail(v.Validate()) {
			return false
		}
	}

	for _, process := range ex.p.requestProcessors {
		var err error
		if ex.ctx, err = process(ex.ctx, ex.req); ex.fail(err) {
			return false
		}
	}

	return true
}

func (ex *exchange[Req, Resp]) respond(w http.ResponseWriter) {
	// Response processors may set headers.
	ex.resp.SetHeader(w.Header())

	var err error
	if ex.p.serializer != nil && ex.resp.GetError() == nil {
		if ex.ctx, err = ex.p.serializer.Serialize(ex.ctx, ex.resp); ex.fail(err) {
			ex.ctx = setResponseData(ex.ctx, nil)
		}
	}

	for _, process := range ex.p.responseProcessors {
		if ex.ctx, err = process(ex.ctx, ex.resp); ex.fail(err) {
			break
		}
	}

	if err = writeResponse(ex.ctx, w, ex.resp); err != nil {
		ex.logger.Error("failed writing response", "error", err.Error())
	}
}

// fail maps err with MapError and sets the result on the response. It returns
// true if err is not nil.
func (ex *exchange[Req, Resp]) fail(err error) bool {
	if err == nil {
		return false
	}

	terr := MapError(err)
	level := slog.LevelDebug
	if terr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	ex.logger.Log(ex.ctx, level, "request failed", "status", terr.StatusCode, "error", err.Error())

	ex.resp.SetStatusCode(terr.StatusCode)
	ex.resp.SetError(terr)

	return true
}

// createInstance returns a pointer to a new zero value of the type T points to.
//
//nolint:ireturn,nolintlint // Required for generic functionality.
func createInstance[T any]() T {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer {
		panic("handler: request and response types must be pointers, got " + t.String())
	}

	return reflect.New(t.Elem()).Interface().(T) //nolint:errcheck,forcetypeassert // Checked above.
}

func isNilResponse(resp types.Response) bool {
	return resp == nil || reflect.ValueOf(resp).IsNil()
}
