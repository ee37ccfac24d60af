package core

import (
	"context"
	"io"
)

// Upload holds an inbound binary payload and its declared MIME type.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// BlobService is any service that can durably store binary payloads and hand
// back a retrievable URL.
type BlobService interface {
	// Put stores the payload under the given key and returns its durable URL.
	Put(ctx context.Context, key string, up Upload) (string, error)
	// Delete removes a previously stored payload. Absence is not an error.
	Delete(ctx context.Context, key string) error
}
