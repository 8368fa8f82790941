// Package storage declares the binary object store used for uploaded videos
// and profile images.
package storage

import (
	"context"
	"io"
)

// File is an uploaded file as received from a client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ObjectStore interface {
	// Put stores the object under name and returns its public URL.
	Put(ctx context.Context, name string, file File) (url string, err error)
	Remove(ctx context.Context, name string) (err error)
}
