package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/noah-isme/examhub-api/pkg/config"
)

// ErrS3Disabled is returned when an s3:// reference is resolved without a configured bucket.
var ErrS3Disabled = errors.New("s3 storage not configured")

// S3Presigner issues presigned GET and PUT URLs for objects in an S3 compatible bucket.
type S3Presigner struct {
	api    *s3.Client
	client *s3.PresignClient
	bucket string
	ttl    time.Duration
}

// NewS3Presigner builds a presign client from static credentials. An empty endpoint keeps the AWS default.
func NewS3Presigner(ctx context.Context, cfg appconfig.S3Config) (*S3Presigner, error) {
	if !cfg.Enabled {
		return nil, ErrS3Disabled
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Presigner{api: client, client: s3.NewPresignClient(client), bucket: cfg.Bucket, ttl: ttl}, nil
}

// Bucket returns the default bucket used for uploads.
func (p *S3Presigner) Bucket() string {
	return p.bucket
}

// PresignGet returns a time-limited download URL for bucket/key. An empty bucket uses the default one.
func (p *S3Presigner) PresignGet(ctx context.Context, bucket, key string) (string, time.Time, error) {
	if bucket == "" {
		bucket = p.bucket
	}
	expiresAt := time.Now().UTC().Add(p.ttl)
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign get %s/%s: %w", bucket, key, err)
	}
	return req.URL, expiresAt, nil
}

// PresignPut returns a time-limited upload URL for key in the default bucket.
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	expiresAt := time.Now().UTC().Add(p.ttl)
	req, err := p.client.PresignPutObject(ctx, input, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put %s/%s: %w", p.bucket, key, err)
	}
	return req.URL, expiresAt, nil
}

// Delete removes bucket/key. An empty bucket uses the default one.
func (p *S3Presigner) Delete(ctx context.Context, bucket, key string) error {
	if bucket == "" {
		bucket = p.bucket
	}
	if _, err := p.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}
