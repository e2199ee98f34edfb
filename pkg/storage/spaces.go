package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dskvich/signvideo/pkg/domain"
)

const videoContentType = "video/mp4"

type SpacesConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL overrides the storage endpoint in returned URLs, e.g. a CDN.
	PublicBaseURL string
}

type StoredObject struct {
	Key          string
	LastModified time.Time
}

type spaces struct {
	api        *minio.Client
	bucket     string
	publicBase string
}

// NewSpaces connects to an S3 compatible bucket (DigitalOcean Spaces, MinIO).
func NewSpaces(cfg SpacesConfig) (*spaces, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("endpoint and bucket are required")
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating spaces client: %w", err)
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = api.EndpointURL().String() + "/" + cfg.Bucket
	}

	return &spaces{
		api:        api,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload stores the file under key with a public-read ACL.
func (s *spaces) Upload(ctx context.Context, key, filePath string) error {
	info, err := s.api.FPutObject(ctx, s.bucket, key, filePath, minio.PutObjectOptions{
		ContentType:  videoContentType,
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, classify(err))
	}

	slog.InfoContext(ctx, "Upload successful", "bucket", s.bucket, "key", key, "bytes", info.Size)

	return nil
}

func (s *spaces) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

func (s *spaces) Remove(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", key, classify(err))
	}
	return nil
}

func (s *spaces) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	var objects []StoredObject
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, classify(obj.Err))
		}
		objects = append(objects, StoredObject{Key: obj.Key, LastModified: obj.LastModified})
	}
	return objects, nil
}

// EnsureBucket checks the bucket is reachable at startup.
func (s *spaces) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s: %w", s.bucket, domain.ErrStorageNotFound)
	}
	return nil
}

func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket", "NoSuchKey":
		return errors.Join(domain.ErrStorageNotFound, err)
	}
	return err
}
