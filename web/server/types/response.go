package types

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// Response defines the interface for HTTP response wrappers.
type Response interface {
	GetStatusCode() int
	SetStatusCode(int)
	GetError() error
	SetError(error)
	GetHeader() http.Header
	SetHeader(http.Header)
}

// BaseResponse provides a base implementation of Response.
type BaseResponse struct {
	statusCode int
	err        error
	header     http.Header
}

var _ Response = (*BaseResponse)(nil)

// NewBaseResponse returns a new BaseResponse with the given status code and
// optional error.
func NewBaseResponse(statusCode int, err error) BaseResponse {
	return BaseResponse{statusCode: statusCode, err: err}
}

// GetStatusCode returns the HTTP status code of the response. It defaults to
// 200 OK.
func (r *BaseResponse) GetStatusCode() int {
	if r.statusCode == 0 {
		return http.StatusOK
	}
	return r.statusCode
}

// SetStatusCode sets the HTTP status code of the response.
func (r *BaseResponse) SetStatusCode(code int) {
	r.statusCode = code
}

// GetError returns the error set on the response, if any.
func (r *BaseResponse) GetError() error {
	return r.err
}

// SetError sets the response error.
func (r *BaseResponse) SetError(err error) {
	r.err = err
}

// GetHeader returns the response headers.
func (r *BaseResponse) GetHeader() http.Header {
	if r.header == nil {
		r.header = http.Header{}
	}
	return r.header
}

// SetHeader replaces the response headers with h. Headers that were set
// previously are copied into h.
func (r *BaseResponse) SetHeader(h http.Header) {
	for k, v := range r.header {
		h[k] = v
	}
	r.header = h
}

// ValueResponse is the response of an endpoint that produces at most one
// value. It's written as plain text.
type ValueResponse[T any] struct {
	BaseResponse
	Value T
	// Present is false if no value was produced.
	Present bool
}

// NewValueResponse returns a new ValueResponse. If ok is false, the response
// status is 204 No Content.
func NewValueResponse[T any](v T, ok bool) *ValueResponse[T] {
	status := http.StatusOK
	if !ok {
		status = http.StatusNoContent
	}
	return &ValueResponse[T]{
		BaseResponse: NewBaseResponse(status, nil),
		Value:        v,
		Present:      ok,
	}
}

// Text returns the plain text representation of the value.
func (r *ValueResponse[T]) Text() string {
	if !r.Present {
		return ""
	}
	return fmt.Sprint(r.Value)
}

// ListResponse is the response of an endpoint that produces a sequence of
// values. It's written as a JSON array.
type ListResponse[T any] struct {
	BaseResponse
	Items []T
}

// NewListResponse returns a new ListResponse with HTTP 200 status.
func NewListResponse[T any](items []T) *ListResponse[T] {
	return &ListResponse[T]{
		BaseResponse: NewBaseResponse(http.StatusOK, nil),
		Items:        items,
	}
}

// MarshalJSON encodes the items as a JSON array. No items are encoded as an
// empty array.
func (r *ListResponse[T]) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// FileResponse is the content of a stored file, written as raw bytes.
type FileResponse struct {
	BaseResponse
	Filename string
	Content  []byte
}

// NewFileResponse returns a new FileResponse with HTTP 200 status. A non-empty
// filename is suggested to clients in the Content-Disposition header.
func NewFileResponse(filename string, content []byte) *FileResponse {
	r := &FileResponse{
		BaseResponse: NewBaseResponse(http.StatusOK, nil),
		Filename:     filename,
		Content:      content,
	}
	if filename != "" {
		r.GetHeader().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	return r
}

// Bytes returns the file content.
func (r *FileResponse) Bytes() []byte {
	return r.Content
}

// DataResponse is a response with arbitrary data, written as JSON.
type DataResponse struct {
	BaseResponse
	Data any
}

// MarshalJSON encodes the response data.
func (r *DataResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data)
}
