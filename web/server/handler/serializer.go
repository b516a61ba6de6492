package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.hackfix.me/rxplay/web/server/types"
)

const maxBodyReadSize = 1024 * 1024 // 1MiB

// Serializer is the interface for deserializing the raw request body data into
// the typed request value, and for serializing the typed response value into
// the raw response data.
type Serializer interface {
	Deserialize(ctx context.Context, req types.Request) (context.Context, error)
	Serialize(ctx context.Context, resp types.Response) (context.Context, error)
}

// JSONSerializer implements JSON request and response serialization.
type JSONSerializer struct{}

var _ Serializer = (*JSONSerializer)(nil)

// JSON returns a new JSON serializer.
func JSON() JSONSerializer {
	return JSONSerializer{}
}

// Deserialize decodes JSON from the request body into the request object.
// Requests without a body are left as they are. It enforces a maximum body size
// limit to prevent resource exhaustion.
func (JSONSerializer) Deserialize(ctx context.Context, req types.Request) (context.Context, error) {
	httpReq := req.GetHTTPRequest()

	if !hasBody(httpReq) {
		return ctx, nil
	}

	limitedReader := io.LimitReader(httpReq.Body, maxBodyReadSize)
	decoder := json.NewDecoder(limitedReader)
	if err := decoder.Decode(req); err != nil {
		return ctx, types.Errorf(http.StatusBadRequest,
			"failed decoding request body into JSON: %w", err)
	}

	return ctx, nil
}

// Serialize encodes the response as JSON and stores it in the context for writing.
// It sets the appropriate Content-Type header.
func (JSONSerializer) Serialize(ctx context.Context, resp types.Response) (context.Context, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return ctx, fmt.Errorf("failed marshalling response into JSON: %w", err)
	}

	ctx = setResponseData(ctx, data)

	resp.GetHeader().Set("Content-Type", "application/json")

	return ctx, nil
}

// TextSerializer writes responses as plain text. It ignores request bodies.
type TextSerializer struct{}

var _ Serializer = (*TextSerializer)(nil)

// Text returns a new plain text serializer.
func Text() TextSerializer {
	return TextSerializer{}
}

// Deserialize is a no-op.
func (TextSerializer) Deserialize(ctx context.Context, _ types.Request) (context.Context, error) {
	return ctx, nil
}

// Serialize stores the text representation of the response in the context for
// writing. The response must implement a Text() string method.
func (TextSerializer) Serialize(ctx context.Context, resp types.Response) (context.Context, error) {
	tresp, ok := resp.(interface{ Text() string })
	if !ok {
		return ctx, fmt.Errorf("response type %T doesn't support plain text", resp)
	}

	ctx = setResponseData(ctx, []byte(tresp.Text()))

	resp.GetHeader().Set("Content-Type", "text/plain; charset=utf-8")

	return ctx, nil
}

// BinarySerializer writes responses as raw bytes. It ignores request bodies.
type BinarySerializer struct{}

var _ Serializer = (*BinarySerializer)(nil)

// Binary returns a new raw bytes serializer.
func Binary() BinarySerializer {
	return BinarySerializer{}
}

// Deserialize is a no-op.
func (BinarySerializer) Deserialize(ctx context.Context, _ types.Request) (context.Context, error) {
	return ctx, nil
}

// Serialize stores the response bytes in the context for writing. The response
// must implement a Bytes() []byte method. The Content-Type defaults to
// application/octet-stream.
func (BinarySerializer) Serialize(ctx context.Context, resp types.Response) (context.Context, error) {
	bresp, ok := resp.(interface{ Bytes() []byte })
	if !ok {
		return ctx, fmt.Errorf("response type %T doesn't support raw bytes", resp)
	}

	ctx = setResponseData(ctx, bresp.Bytes())

	if resp.GetHeader().Get("Content-Type") == "" {
		resp.GetHeader().Set("Content-Type", "application/octet-stream")
	}

	return ctx, nil
}

// MultipartSerializer parses multipart form requests, and delegates response
// serialization to another Serializer.
type MultipartSerializer struct {
	Serializer
	maxMemory int64
	maxBody   int64
}

var _ Serializer = (*MultipartSerializer)(nil)

// Multipart returns a serializer that parses multipart form requests, keeping
// up to maxMemory bytes of file parts in memory, and the rest in temporary
// files. Reading stops once maxBody bytes of the request body were read, and
// the request fails with 413 Request Entity Too Large. If maxBody is not
// positive, the body size is not limited. Responses are serialized with resp.
func Multipart(maxMemory, maxBody int64, resp Serializer) MultipartSerializer {
	return MultipartSerializer{Serializer: resp, maxMemory: maxMemory, maxBody: maxBody}
}

// Deserialize parses the multipart form, and passes it to the request object if
// it implements a SetMultipartForm(*multipart.Form) error method. A request
// that isn't multipart passes a nil form.
func (s MultipartSerializer) Deserialize(ctx context.Context, req types.Request) (context.Context, error) {
	httpReq := req.GetHTTPRequest()
	if s.maxBody > 0 && httpReq.Body != nil {
		httpReq.Body = http.MaxBytesReader(nil, httpReq.Body, s.maxBody)
	}

	var (
		form   *multipart.Form
		tooBig *http.MaxBytesError
	)
	err := httpReq.ParseMultipartForm(s.maxMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
	case errors.As(err, &tooBig):
		return ctx, types.NewError(http.StatusRequestEntityTooLarge, "File too large")
	case err != nil:
		return ctx, types.Errorf(http.StatusBadRequest,
			"failed parsing multipart form: %w", err)
	default:
		form = httpReq.MultipartForm
	}

	if mreq, ok := req.(interface {
		SetMultipartForm(*multipart.Form) error
	}); ok {
		if err = mreq.SetMultipartForm(form); err != nil {
			return ctx, err
		}
	}

	return ctx, nil
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
