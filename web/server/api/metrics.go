package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-metrics"

	"go.hackfix.me/rxplay/web/server/handler"
	"go.hackfix.me/rxplay/web/server/types"
)

func metricsSnapshot(sink *metrics.InmemSink, p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(_ context.Context, req *types.BaseRequest) (*types.DataResponse, error) {
			if sink == nil {
				return nil, types.NewError(http.StatusNotFound, "Metrics are disabled")
			}
			// The response writer is unused by the sink.
			summary, err := sink.DisplayMetrics(nil, req.GetHTTPRequest())
			if err != nil {
				return nil, fmt.Errorf("failed reading metrics: %w", err)
			}
			return &types.DataResponse{Data: summary}, nil
		},
		p.Clone().Serialize(handler.JSON()),
	)
}
