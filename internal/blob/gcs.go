package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCS is the Cloud Storage backed Store used in production.
type GCS struct {
	bucket *storage.BucketHandle
}

// NewGCS wraps a bucket of an existing storage client.
func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket)}
}

func (s *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open reader for %s: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put writes the object only if it does not already exist. A precondition
// failure means an earlier attempt of the same idempotent stage already wrote
// an equivalent object, so it is treated as success.
func (s *GCS) Put(ctx context.Context, key string, data []byte) error {
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			slog.Info("Object already exists, skipping write.", "key", key)
			return nil
		}
		return fmt.Errorf("failed to write to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			slog.Info("Object already exists, skipping write.", "key", key)
			return nil
		}
		return fmt.Errorf("failed to finalize write to %s: %w", key, err)
	}
	return nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
