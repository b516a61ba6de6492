package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	dbm "go.hackfix.me/rxplay/db/models"
	"go.hackfix.me/rxplay/models"
	"go.hackfix.me/rxplay/playground"
	"go.hackfix.me/rxplay/upload"
	"go.hackfix.me/rxplay/web/server/handler"
	"go.hackfix.me/rxplay/web/server/types"
)

const (
	// uploadMaxMemory is the size of the multipart form kept in memory.
	// Larger files are buffered to temporary files.
	uploadMaxMemory = 10 << 20
	// multipartOverhead is the room left in the request body for the
	// multipart boundaries and part headers.
	multipartOverhead = 64 << 10

	defaultListLimit = 100
	maxListLimit     = 1000
)

// uploadBodyLimit returns the maximum size of an upload request body.
func uploadBodyLimit(uploads UploadStore) int64 {
	maxSize := int64(upload.DefaultMaxSize)
	if uploads != nil {
		maxSize = uploads.MaxSize()
	}
	return maxSize + multipartOverhead
}

func uploadFile(pg *playground.Handlers, uploads UploadStore, p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, req *types.UploadRequest) (*types.ValueResponse[string], error) {
			v, ok, err := pg.FileUpload(*req.Part).Block(ctx)
			if errors.Is(err, upload.ErrTooLarge) {
				return nil, types.NewError(http.StatusRequestEntityTooLarge, "File too large")
			}
			if err != nil {
				return nil, err
			}
			return types.NewValueResponse(v, ok), nil
		},
		p.Clone().Serialize(handler.Multipart(uploadMaxMemory, uploadBodyLimit(uploads), handler.Text())),
	)
}

type uploadsRequest struct {
	types.BaseRequest
	limit int
}

// Validate parses the optional limit query parameter.
func (r *uploadsRequest) Validate() error {
	r.limit = defaultListLimit

	l, ok := r.QueryParam("limit")
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(l)
	if err != nil || n < 1 || n > maxListLimit {
		return types.Errorf(http.StatusBadRequest,
			"limit must be a number between 1 and %d", maxListLimit)
	}
	r.limit = n

	return nil
}

func listUploads(uploads UploadStore, p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, req *uploadsRequest) (*types.ListResponse[*dbm.Upload], error) {
			if uploads == nil {
				return types.NewListResponse[*dbm.Upload](nil), nil
			}
			ups, err := uploads.List(ctx, req.limit)
			if err != nil {
				return nil, fmt.Errorf("failed listing uploads: %w", err)
			}
			return types.NewListResponse(ups), nil
		},
		p.Clone().Serialize(handler.JSON()),
	)
}

type uploadRequest struct {
	types.BaseRequest
	id string
}

// Validate reads the upload ID from the request path.
func (r *uploadRequest) Validate() error {
	r.id = r.PathParam("id")
	if r.id == "" {
		return types.NewError(http.StatusBadRequest, "upload ID is required")
	}
	return nil
}

func downloadUpload(uploads UploadStore, p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, req *uploadRequest) (*types.FileResponse, error) {
			if uploads == nil {
				return nil, models.NewNotFoundError("upload %s", req.id)
			}
			up, f, err := uploads.Open(ctx, req.id)
			if err != nil {
				return nil, err
			}
			defer f.Close()

			data, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed reading upload %s: %w", req.id, err)
			}
			return types.NewFileResponse(up.Filename, data), nil
		},
		p.Clone().Serialize(handler.Binary()),
	)
}

func deleteUpload(uploads UploadStore, p *handler.Pipeline) http.Handler {
	return handler.Handle(
		func(ctx context.Context, req *uploadRequest) (*types.ValueResponse[string], error) {
			if uploads == nil {
				return nil, models.NewNotFoundError("upload %s", req.id)
			}
			if err := uploads.Delete(ctx, req.id); err != nil {
				return nil, err
			}
			return types.NewValueResponse("", false), nil
		},
		p.Clone().Serialize(handler.Text()),
	)
}
