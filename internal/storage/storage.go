package storage

import (
	"context"
	"io"
)

type Uploader interface {
	// Upload stores r under objectName and returns a URL clients can fetch.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (publicURL string, err error)
}
