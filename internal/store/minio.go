package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ExportConfig locates the bucket that holds rendered report files.
type ExportConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ExportStore keeps the DOCX, PDF and .tex files of stored reports in
// MinIO, one prefix per user and report.
type ExportStore struct {
	client *minio.Client
	bucket string
}

// NewExportStore connects to MinIO and creates the bucket when missing.
func NewExportStore(ctx context.Context, cfg ExportConfig) (*ExportStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			// Another replica may have created it in the meantime.
			if ok, _ := client.BucketExists(ctx, cfg.Bucket); !ok {
				return nil, fmt.Errorf("minio make bucket %s: %w", cfg.Bucket, err)
			}
		}
	}
	return &ExportStore{client: client, bucket: cfg.Bucket}, nil
}

// ObjectKey is the storage key of one exported file of a report.
func ObjectKey(userID, reportID, name string) string {
	return fmt.Sprintf("%s/%s/%s", userID, reportID, name)
}

// reportOf returns the report id segment of an ObjectKey, or "".
func reportOf(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func attachment(key string) string {
	return fmt.Sprintf("attachment; filename=%q", path.Base(key))
}

func isMissing(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

// Upload stores one export. The object carries its download file name and
// the owning report id.
func (s *ExportStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: attachment(key),
	}
	if id := reportOf(key); id != "" {
		opts.UserMetadata = map[string]string{"report-id": id}
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Download returns an export and its content type. Missing objects map to
// ErrNotFound.
func (s *ExportStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("download %s: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isMissing(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("stat %s: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	return data, info.ContentType, nil
}

// Remove deletes an export. Removing a missing object succeeds.
func (s *ExportStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isMissing(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
