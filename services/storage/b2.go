// Package storagesvc provides blob storage backends for uploaded files.
package storagesvc

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
)

type b2Service struct {
	bucket  *b2.Bucket
	baseURL string
}

var _ core.BlobService = (*b2Service)(nil)

// NewB2Service connects to Backblaze B2 and binds the configured bucket.
func NewB2Service(ctx context.Context, conf *core.Config) (core.BlobService, error) {
	client, err := b2.NewClient(ctx, conf.B2.KeyID, conf.B2.AppKey)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to b2")
	}
	bucket, err := client.Bucket(ctx, conf.B2.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "binding b2 bucket")
	}
	return &b2Service{bucket: bucket, baseURL: conf.B2.BaseURL}, nil
}

func (svc *b2Service) Put(ctx context.Context, key string, up core.Upload) (string, error) {
	obj := svc.bucket.Object(key)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, up.Content); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "finalizing object")
	}
	return fmt.Sprintf("%s/%s", svc.baseURL, key), nil
}

func (svc *b2Service) Delete(ctx context.Context, key string) error {
	return errors.Wrap(svc.bucket.Object(key).Delete(ctx), "deleting object")
}
