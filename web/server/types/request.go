package types

import "net/http"

// Request is implemented by the typed request of each endpoint. The handler
// creates it for every call, and sets the incoming HTTP request on it before
// deserializing.
type Request interface {
	SetHTTPRequest(*http.Request)
	GetHTTPRequest() *http.Request
}

// BaseRequest embeds the HTTP request. Endpoints that read nothing but the URL
// use it directly.
type BaseRequest struct {
	*http.Request
}

var _ Request = (*BaseRequest)(nil)

func (r *BaseRequest) GetHTTPRequest() *http.Request {
	return r.Request
}

func (r *BaseRequest) SetHTTPRequest(req *http.Request) {
	r.Request = req
}

// QueryParam returns the first value of the named query string parameter, and
// whether it was set to a non-empty value.
func (r *BaseRequest) QueryParam(name string) (string, bool) {
	v := r.URL.Query().Get(name)
	return v, v != ""
}

// PathParam returns the value of the named wildcard in the matched route
// pattern.
func (r *BaseRequest) PathParam(name string) string {
	return r.PathValue(name)
}
