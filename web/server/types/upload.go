package types

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.hackfix.me/rxplay/models"
)

// UploadField is the multipart form field that holds the uploaded file.
const UploadField = "file"

// UploadRequest is a multipart request with a single file in UploadField.
type UploadRequest struct {
	BaseRequest
	Part *models.FilePart

	file multipart.File
	form *multipart.Form
}

// SetMultipartForm extracts the uploaded file from the parsed form. A form
// without the file field is not an error; Validate reports it.
func (r *UploadRequest) SetMultipartForm(form *multipart.Form) error {
	r.form = form
	if form == nil || len(form.File[UploadField]) == 0 {
		return nil
	}

	fh := form.File[UploadField][0]
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed opening uploaded file: %w", err)
	}
	r.file = f

	// Prefer the length declared by the client for the part, if any.
	size := fh.Size
	if cl := fh.Header.Get("Content-Length"); cl != "" {
		if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil && n >= 0 {
			size = n
		}
	}

	r.Part = &models.FilePart{
		Name:     UploadField,
		Filename: fh.Filename,
		Size:     size,
		Content:  f,
	}

	return nil
}

// Validate checks that the request contains a file.
func (r *UploadRequest) Validate() error {
	if r.Part == nil {
		return NewError(http.StatusBadRequest, "No file provided")
	}
	return nil
}

// Cleanup closes the uploaded file, and removes any temporary files created
// while parsing the form.
func (r *UploadRequest) Cleanup() error {
	var err error
	if r.file != nil {
		err = r.file.Close()
	}
	if r.form != nil {
		if rerr := r.form.RemoveAll(); err == nil {
			err = rerr
		}
	}
	return err
}
