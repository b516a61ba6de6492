package models

import "io"

// FilePart is a single file received in a multipart request.
type FilePart struct {
	// Name is the form field name of the part.
	Name string
	// Filename is the file name declared by the client. It may be empty.
	Filename string
	// Size is the declared content length, or -1 if it's unknown.
	Size    int64
	Content io.Reader
}
