package api

import (
	"context"
	"net/http"

	"go.hackfix.me/rxplay/reactive"
	"go.hackfix.me/rxplay/web/server/handler"
	"go.hackfix.me/rxplay/web/server/types"
)

// single serves the value of the Mono returned by fn as plain text. A Mono
// without a value is answered with 204 No Content.
func single[T any](fn func() reactive.Mono[T], p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, _ *types.BaseRequest) (*types.ValueResponse[T], error) {
			v, ok, err := fn().Block(ctx)
			if err != nil {
				return nil, err
			}
			return types.NewValueResponse(v, ok), nil
		},
		p.Clone().Serialize(handler.Text()),
	)
}

// many collects the values of the Flux returned by fn, and serves them as a
// JSON array.
func many[T any](fn func() reactive.Flux[T], p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, _ *types.BaseRequest) (*types.ListResponse[T], error) {
			items, err := fn().Collect(ctx)
			if err != nil {
				return nil, err
			}
			return types.NewListResponse(items), nil
		},
		p.Clone().Serialize(handler.JSON()),
	)
}
