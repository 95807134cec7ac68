// Package media stores menu item images in S3.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"restaurant-pos/internal/config"
)

// MaxImageSize caps uploaded menu images.
const MaxImageSize = 5 << 20

// PresignExpiry is how long image URLs in API responses stay valid.
const PresignExpiry = time.Hour

// Storage is what the menu service needs from an object store.
type Storage interface {
	Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Storage handles all S3-related operations
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage returns nil, nil when no bucket is configured.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Storage{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

// Upload stores body under prefix/<unix>_<filename> and returns the key.
func (s *S3Storage) Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error) {
	content, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) > MaxImageSize {
		return "", fmt.Errorf("file exceeds %d bytes", MaxImageSize)
	}

	key := ObjectKey(prefix, filename, time.Now())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (s *S3Storage) PresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	req, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = PresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// ObjectKey builds prefix/<unix>_<filename> with path segments stripped from filename.
func ObjectKey(prefix, filename string, at time.Time) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%s/%d_%s", strings.Trim(prefix, "/"), at.Unix(), name)
}

// AllowedContentType accepts the image types the menu UI renders.
func AllowedContentType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png", "image/jpeg", "image/webp":
		return true
	}
	return false
}
