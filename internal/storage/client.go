package storage

import (
	"context"
	"fmt"
	"io"
)

// Provider names accepted by New.
const (
	ProviderMinIO = "minio"
	ProviderS3    = "s3"
)

// Client uploads objects into a single bucket.
// Implementations must be safe for concurrent use by many workers.
type Client interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error
}

// PutOptions contains options for put operations
type PutOptions struct {
	ContentType string
	// PartSize is the multipart part size in bytes; 0 lets the client decide.
	PartSize uint64
	// Threads is the number of parts uploaded in parallel for one object; 0 lets the client decide.
	Threads uint
}

// Config contains client configuration
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	PathStyle bool
}

// New creates the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", ProviderMinIO:
		return NewMinIOClient(cfg)
	case ProviderS3:
		return NewS3Client(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
