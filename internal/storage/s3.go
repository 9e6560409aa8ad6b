package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client implements the Client interface using the AWS SDK upload manager.
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates an AWS SDK client for the resolved endpoint with static credentials.
func NewS3Client(ctx context.Context, cfg Config) (*S3Client, error) {
	host, region, err := ResolveEndpoint(cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	scheme := "https"
	if !cfg.Secure {
		scheme = "http"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(scheme + "://" + host)
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Client{client: client, bucket: cfg.Bucket}, nil
}

// PutObject uploads an object, switching to multipart above opts.PartSize.
func (c *S3Client) PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error {
	uploader := manager.NewUploader(c.client, func(u *manager.Uploader) {
		if opts.PartSize > 0 {
			u.PartSize = int64(opts.PartSize)
		}
		if opts.Threads > 0 {
			u.Concurrency = int(opts.Threads)
		}
	})

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	_, err := uploader.Upload(ctx, input)
	return err
}
