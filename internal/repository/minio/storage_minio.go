package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
)

func NewClient(endpoint, key, secret string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: useSSL,
	})
}

// Storage uploads objects and hands back the URL clients fetch them from.
type Storage struct {
	client  *minio.Client
	baseURL string
}

var _ ports.ObjectStorage = (*Storage)(nil)

// NewStorage builds object URLs from publicURL when set, otherwise from the
// client endpoint.
func NewStorage(client *minio.Client, publicURL string) *Storage {
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if base == "" {
		base = strings.TrimRight(client.EndpointURL().String(), "/")
	}
	return &Storage{client: client, baseURL: base}
}

func (s *Storage) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *Storage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, objectName, err)
	}
	return ObjectURL(s.baseURL, bucket, objectName), nil
}

func (s *Storage) Remove(ctx context.Context, bucket, objectName string) error {
	return s.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{})
}

func ObjectURL(baseURL, bucket, objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), bucket, strings.Join(segments, "/"))
}
