// Package s3storage archives rendered report exports in a MinIO/S3 bucket.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/AgentDesk/internal/config"
)

// Storage wraps the MinIO client for the exports bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{client: client, bucket: cfg.ExportBucket, region: cfg.S3Region}, nil
}

// ExportKey is the object key for one export of an identity's report.
func ExportKey(identity string, at time.Time, ext string) string {
	return fmt.Sprintf("exports/%s/%s.%s", url.PathEscape(identity), at.UTC().Format("20060102T150405.000Z"), strings.TrimPrefix(ext, "."))
}

// OwnedBy reports whether key names a file directly under the identity's
// export prefix.
func OwnedBy(key, identity string) bool {
	if identity == "" {
		return false
	}
	name, ok := strings.CutPrefix(key, "exports/"+url.PathEscape(identity)+"/")
	return ok && name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// EnsureBucket makes sure the exports bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload stores an export.
func (s *Storage) Upload(ctx context.Context, objectKey string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("upload export object: %w", err)
	}
	return nil
}

// Download fetches an export.
func (s *Storage) Download(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get export object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read export object: %w", err)
	}
	return buf, nil
}

// PresignURL returns a direct, time-limited GET URL for an export.
func (s *Storage) PresignURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign export object: %w", err)
	}
	return u.String(), nil
}
