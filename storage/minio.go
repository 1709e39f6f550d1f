package storage

import (
	"context"
	"errors"
	"fmt"

	"site-cms/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// BaseURL is the public prefix objects are served from, usually a CDN
	// or the bucket endpoint.
	BaseURL string
	MaxSize int64
}

// MinioStore keeps uploads in an S3-compatible bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
	maxSize int64
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: cfg.BaseURL,
		maxSize: cfg.MaxSize,
	}, nil
}

// EnsureBucket creates the bucket on first use.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioStore) Save(ctx context.Context, folder string, upload Upload) (*models.FileRef, error) {
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return nil, ErrTooLarge
	}
	name := objectName(upload)
	key := objectKey(folder, name)

	size := upload.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, upload.Reader, size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload object %s: %w", key, err)
	}

	return &models.FileRef{
		Filename:     name,
		OriginalName: upload.OriginalName,
		Path:         key,
		MimeType:     upload.ContentType,
		Size:         info.Size,
		URL:          publicURL(s.baseURL, key),
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove object %s: %w", path, err)
	}
	return nil
}
