package handler

import "context"

// responseDataKey stores the serialized response body.
type responseDataKey struct{}

func getResponseData(ctx context.Context) []byte {
	data, _ := ctx.Value(responseDataKey{}).([]byte)
	return data
}

func setResponseData(ctx context.Context, data []byte) context.Context {
	return context.WithValue(ctx, responseDataKey{}, data)
}
