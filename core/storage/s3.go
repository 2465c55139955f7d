package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"meetbook/core/config"
	"meetbook/core/logger"
)

// DocumentArchive stores signed-document artifacts. The core never reads
// them back; absence of credentials degrades the archive to a no-op.
type DocumentArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type s3Archive struct {
	client *s3.Client
	bucket string
}

type noopArchive struct{}

func (noopArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	logger.Debug("Storage:Noop:Put", "key", key, "bytes", len(body))
	return nil
}

// New builds an S3-backed archive from config, or a no-op when the bucket
// is not configured.
func New(cfg config.S3Config) DocumentArchive {
	if cfg.Bucket == "" {
		logger.Info("Storage:Init:Disabled")
		return noopArchive{}
	}
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	logger.Info("Storage:Init:Success", "bucket", cfg.Bucket, "region", cfg.Region)
	return &s3Archive{client: s3.New(opts), bucket: cfg.Bucket}
}

func (a *s3Archive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
