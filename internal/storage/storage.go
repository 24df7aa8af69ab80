// Package storage persists uploaded assignment files and hands back an
// opaque reference. File content is never inspected.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stemsi/coursehub-backend/internal/config"
)

// Provider stores an object under key and returns its reference.
type Provider interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// New builds the provider selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMinio:
		return NewMinioProvider(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case config.StorageDriverLocal, "":
		return NewLocalProvider(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// LocalProvider writes objects below a directory on disk.
type LocalProvider struct {
	root string
}

func NewLocalProvider(root string) *LocalProvider {
	return &LocalProvider{root: root}
}

func (p *LocalProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return "local://" + key, nil
}

func (p *LocalProvider) Delete(ctx context.Context, ref string) error {
	dst, err := p.path(strings.TrimPrefix(ref, "local://"))
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path resolves key below root and rejects keys that escape it.
func (p *LocalProvider) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	dst := filepath.Join(p.root, clean)
	rel, err := filepath.Rel(p.root, dst)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return dst, nil
}

// MinioProvider writes objects to an S3-compatible bucket.
type MinioProvider struct {
	client *minio.Client
	bucket string
}

// NewMinioProvider connects to endpoint and creates bucket if it does not exist.
func NewMinioProvider(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioProvider, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioProvider{client: client, bucket: bucket}, nil
}

func (p *MinioProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

func (p *MinioProvider) Delete(ctx context.Context, ref string) error {
	key := strings.TrimPrefix(ref, fmt.Sprintf("s3://%s/", p.bucket))
	return p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{})
}
