package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	aerrors "go.hackfix.me/rxplay/app/errors"
	"go.hackfix.me/rxplay/web/server/types"
)

// maxErrorBodySize is the maximum number of bytes of an error response read
// into the returned error.
const maxErrorBodySize = 4096

// Client is a friendly interface over the rxplay HTTP API.
type Client struct {
	*http.Client
	baseURL *url.URL
	logger  *slog.Logger
}

// New returns a new client for the server listening on address, in
// [host]:port format. The host defaults to localhost.
func New(address string, logger *slog.Logger) *Client {
	if strings.HasPrefix(address, ":") {
		address = "localhost" + address
	}

	return &Client{
		Client: &http.Client{
			Timeout: time.Minute,
		},
		baseURL: &url.URL{Scheme: "http", Host: address},
		logger:  logger.With("component", "web-client"),
	}
}

// Get requests the endpoint at path, and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, aerrors.NewWithCause("failed creating request", err, "path", path)
	}

	return c.do(req)
}

// Upload sends content in the multipart form field the server expects, and
// returns the response body. The form is streamed, so content is not buffered
// in memory.
func (c *Client) Upload(ctx context.Context, path, filename string, content io.Reader) ([]byte, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		fw, err := mw.CreateFormFile(types.UploadField, filename)
		if err == nil {
			_, err = io.Copy(fw, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, aerrors.NewWithCause("failed creating request", err, "path", path)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req)
}

func (c *Client) url(path string) string {
	u := *c.baseURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	p, q, _ := strings.Cut(path, "?")
	u.Path = p
	u.RawQuery = q
	return u.String()
}

func (c *Client) do(req *http.Request) (_ []byte, rerr error) {
	errFields := []any{"url", req.URL.String(), "method", req.Method}

	resp, err := c.Do(req)
	if err != nil {
		return nil, aerrors.NewWithCause("failed sending request", err, errFields...)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("failed closing response body: %w", err)
		}
	}()

	c.logger.Debug("received response", append(errFields,
		"status_code", resp.StatusCode, "request_id", resp.Header.Get("X-Request-ID"))...)

	errFields = append(errFields, "status_code", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, aerrors.NewWith("request failed", append(errFields, "message", string(msg))...)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, aerrors.NewWithCause("failed reading response body", err, errFields...)
	}

	return body, nil
}
