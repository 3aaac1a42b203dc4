// Package storage uploads generated assets to Cloudflare R2 through its
// S3-compatible API.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/nswprep/examgen/internal/config"
)

// Uploader stores a blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, prefix, ext, contentType string) (string, error)
}

// R2 is an Uploader backed by a Cloudflare R2 bucket.
type R2 struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewR2 builds a client for the configured account. R2 ignores regions
// but the SDK requires one.
func NewR2(ctx context.Context, cfg config.R2Config) (*R2, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading R2 credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint())
		o.UsePathStyle = true
	})
	return &R2{
		client:    client,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload stores the blob under prefix/<random>.<ext> and returns the
// public URL.
func (r *R2) Upload(ctx context.Context, data []byte, prefix, ext, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s.%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", r.publicURL, key), nil
}
