package objectstore

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"
)

// GCSStore implements Store over a single Google Cloud Storage bucket,
// authenticating through the ambient application-default credentials (or
// a service-account key file when GOOGLE_APPLICATION_CREDENTIALS is set).
type GCSStore struct {
	svc    *storagev1.Service
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	svc, err := storagev1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{svc: svc, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	obj := &storagev1.Object{Name: key, Bucket: s.bucket}
	counting := &countingReader{r: r}
	_, err := s.svc.Objects.Insert(s.bucket, obj).Media(counting).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("gcs put %q: %w", key, err)
	}
	return counting.n, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.svc.Objects.Get(s.bucket, key).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("gcs get %q: %w", key, err)
	}
	return resp.Body, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := s.svc.Objects.Delete(s.bucket, key).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs delete %q: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.svc.Objects.Get(s.bucket, key).Context(ctx).Do()
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *GCSStore) Close() error { return nil }

// countingReader wraps an io.Reader to report bytes actually read, since
// the GCS client library consumes the media body internally.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
