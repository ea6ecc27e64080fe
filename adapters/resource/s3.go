package resource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// ObjectClient defines the minimal object-store interface used by the S3
// store.  This allows injection of real aws-sdk-go-v2 or MinIO clients, or
// test doubles.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	HeadObject(ctx context.Context, bucket, key string) (bool, error)
}

// S3 resolves resource ids to objects in an S3-compatible bucket.  Ids are
// appended to Prefix to form the object key.
type S3 struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewS3 creates an S3 store.  client must not be nil.
func NewS3(client ObjectClient, bucket, prefix string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 resources: client must not be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 resources: bucket must not be empty")
	}
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3) key(id string) string {
	k := strings.TrimPrefix(path.Clean("/"+id), "/")
	if s.prefix == "" {
		return k
	}
	return s.prefix + "/" + k
}

func (s *S3) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable("s3.get", err)
	}
	rc, err := s.client.GetObject(ctx, s.bucket, s.key(id))
	if err != nil {
		return nil, apperrors.Unreadable("s3.get", err)
	}
	return rc, nil
}

// Exists reports whether the object for id is present.
func (s *S3) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Unreadable("s3.exists", err)
	}
	return s.client.HeadObject(ctx, s.bucket, s.key(id))
}

var _ core.ResourceStore = (*S3)(nil)
