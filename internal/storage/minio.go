package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements the Client interface using minio-go
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient creates a new MinIO client bound to cfg.Bucket.
func NewMinIOClient(cfg Config) (*MinIOClient, error) {
	host, region, err := ResolveEndpoint(cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.Secure,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOClient{client: client, bucket: cfg.Bucket}, nil
}

// PutObject uploads an object. Readers that implement io.ReaderAt (such as
// *os.File) are uploaded with opts.Threads parts in flight.
func (c *MinIOClient) PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error {
	putOpts := minio.PutObjectOptions{
		ContentType: opts.ContentType,
		PartSize:    opts.PartSize,
		NumThreads:  opts.Threads,
	}

	_, err := c.client.PutObject(ctx, c.bucket, key, reader, size, putOpts)
	return err
}
