package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"melodex/config"
	"melodex/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage keeps art assets in an S3-compatible bucket. Used when a
// MinIO endpoint is configured, for deployments that don't want local state.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects to the configured MinIO endpoint and ensures
// the art bucket exists.
func NewMinioStorage(cfg *config.Config) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check art bucket: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create art bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created art bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStorage{client: client, bucket: cfg.MinioBucket}, nil
}

// Put uploads an art asset.
func (s *MinioStorage) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return fmt.Errorf("failed to upload art asset %s: %w", name, err)
	}
	return nil
}

// Get downloads an art asset by name.
func (s *MinioStorage) Get(ctx context.Context, name string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch art asset %s: %w", name, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read art asset %s: %w", name, err)
	}
	return data, nil
}
