package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures a MinioStore.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Region     string
	PresignTTL time.Duration
}

// MinioStore is a Store backed by an S3-compatible server. Each container
// maps to a bucket of the same (lower-cased) name.
type MinioStore struct {
	client     *minio.Client
	region     string
	presignTTL time.Duration
	buckets    sync.Map
}

// NewMinio builds the client. No request is made until the first call.
func NewMinio(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{
		client:     client,
		region:     opts.Region,
		presignTTL: opts.PresignTTL,
	}, nil
}

func bucketName(container string) string {
	return strings.ToLower(container)
}

func (s *MinioStore) ensureBucket(ctx context.Context, bucket string) error {
	if _, ok := s.buckets.Load(bucket); ok {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
		if err != nil && !isBucketOwned(err) {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	s.buckets.Store(bucket, struct{}{})
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, container string, content io.Reader, size int64, contentType, name string) (string, error) {
	if err := checkNames(container, name); err != nil {
		return "", err
	}
	bucket := bucketName(container)
	if err := s.ensureBucket(ctx, bucket); err != nil {
		return "", err
	}

	key := SanitizeKey(name)
	_, err := s.client.PutObject(ctx, bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

func (s *MinioStore) Exists(ctx context.Context, container, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucketName(container), key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s/%s: %w", container, key, err)
	}
	return true, nil
}

func (s *MinioStore) Download(ctx context.Context, container, key string) (io.ReadCloser, error) {
	bucket := bucketName(container)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	// GetObject is lazy; Stat forces the request so a missing key is
	// reported here rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return obj, nil
}

// URL returns a presigned GET URL when a presign TTL is configured, and the
// plain object URL otherwise.
func (s *MinioStore) URL(ctx context.Context, container, key string) (string, error) {
	bucket := bucketName(container)
	if s.presignTTL > 0 {
		u, err := s.client.PresignedGetObject(ctx, bucket, key, s.presignTTL, url.Values{})
		if err != nil {
			return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
		}
		return u.String(), nil
	}
	return s.client.EndpointURL().JoinPath(bucket, key).String(), nil
}

func (s *MinioStore) Delete(ctx context.Context, container, key string) (bool, error) {
	exists, err := s.Exists(ctx, container, key)
	if err != nil || !exists {
		return false, err
	}
	bucket := bucketName(container)
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove object %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

func isBucketOwned(err error) bool {
	return minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou"
}
