package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"realtyhub/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// RejectedError is a request the object store refused because of the object
// itself, such as an oversized or malformed body.
type RejectedError struct {
	Code    string
	Message string
	Err     error
}

func (e *RejectedError) Error() string { return e.Code + ": " + e.Message }

func (e *RejectedError) Unwrap() error { return e.Err }

// ProviderMessage is the store's own explanation of the rejection.
func (e *RejectedError) ProviderMessage() string { return e.Message }

// classify wraps err, marking rejections the uploader can correct.
// Credential, bucket and throttling failures stay opaque.
func classify(op, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusLengthRequired, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		msg := resp.Message
		if msg == "" {
			msg = resp.Code
		}
		err = &RejectedError{Code: resp.Code, Message: msg, Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

// ObjectStore keeps property images in a single S3-compatible bucket.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: publicBase(cfg, endpoint, useSSL),
	}, nil
}

// publicBase is where clients fetch objects from: the configured public URL
// or, failing that, path-style addressing on the endpoint.
func publicBase(cfg config.StorageConfig, endpoint string, useSSL bool) string {
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		return base + "/"
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/", scheme, endpoint, cfg.Bucket)
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *ObjectStore) Bucket() string {
	return s.bucket
}

func (s *ObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Remove deletes the object. Removing a missing key succeeds.
func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify("remove", key, err)
	}
	return nil
}

// Stat reports the stored size and content type of key.
func (s *ObjectStore) Stat(ctx context.Context, key string) (int64, string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, "", ErrObjectNotFound
		}
		return 0, "", fmt.Errorf("stat %s: %w", key, err)
	}
	return info.Size, info.ContentType, nil
}

func (s *ObjectStore) PublicURL(key string) string {
	return s.baseURL + key
}

// Ping checks the bucket is reachable, for health reporting.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
