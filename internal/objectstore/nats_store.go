// Package objectstore mirrors built corpus cache blobs through a NATS
// JetStream object store, so an expensive build on one host can be reused on
// another. Construction itself stays single-host; only finished blobs move.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/book-expert/aligner-corpus/internal/cachestore"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Store wraps one JetStream object-store bucket holding corpus cache blobs.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New binds to the bucket, creating it when it does not exist yet.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Corpus cache mirror for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to object store bucket '%s': %w", bucketName, err)
		}
	}

	return &Store{bucket: bucketName, store: store}, nil
}

// Upload stores data under key.
func (s *Store) Upload(_ context.Context, key string, data []byte) error {
	_, err := s.store.Put(&nats.ObjectMeta{Name: key}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}

// Download retrieves the object stored under key.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// PushBlob uploads the cache blob found under cacheDir, keyed by name.
func (s *Store) PushBlob(ctx context.Context, cacheDir, name string) error {
	data, err := os.ReadFile(cachestore.BlobPath(cacheDir))
	if err != nil {
		return fmt.Errorf("failed to read cache blob for mirroring: %w", err)
	}

	return s.Upload(ctx, name, data)
}

// FetchBlob downloads the blob stored under name into cacheDir, using the
// same write-then-rename discipline as the local cache store.
func (s *Store) FetchBlob(ctx context.Context, cacheDir, name string) error {
	data, err := s.Download(ctx, name)
	if err != nil {
		return err
	}

	err = os.MkdirAll(cacheDir, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create cache directory '%s': %w", cacheDir, err)
	}

	tmpPath := filepath.Join(cacheDir, "."+uuid.NewString()+".tmp")

	err = os.WriteFile(tmpPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write fetched cache blob: %w", err)
	}

	err = os.Rename(tmpPath, cachestore.BlobPath(cacheDir))
	if err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to finalize fetched cache blob: %w", err)
	}

	return nil
}
