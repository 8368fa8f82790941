package minio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nasermirzaei89/vidtube/storage"
)

const DefaultRegion = "us-east-1"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	// PublicURL is the base of the returned object URLs. It defaults to the
	// endpoint.
	PublicURL string
}

type ObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

var _ storage.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore connects to the server and creates the bucket when it is
// missing.
func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket must not be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}

		slog.InfoContext(ctx, "created minio bucket", "bucket", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}

		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *ObjectStore) Put(ctx context.Context, name string, file storage.File) (string, error) {
	size := file.Size
	if size <= 0 {
		size = -1
	}

	_, err := s.client.PutObject(ctx, s.bucket, name, file.Body, size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}

	return s.URL(name), nil
}

func (s *ObjectStore) Remove(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}

	return nil
}

// URL escapes every path segment of name.
func (s *ObjectStore) URL(name string) string {
	segments := strings.Split(name, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}

	return s.publicURL + "/" + s.bucket + "/" + strings.Join(segments, "/")
}
