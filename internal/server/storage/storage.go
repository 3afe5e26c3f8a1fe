// Package storage keeps uploaded payloads. Records in the files table point
// at payloads by storage key; the bytes live in one of the backends here.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/config"
)

// Storage is a flat key/value blob store. Keys are slash-separated.
type Storage interface {
	// Put stores r under key and returns the number of bytes the backend holds.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader for the payload. Missing keys yield common.ErrorNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the payload. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by backends that can hand out time-limited
// direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the backend selected in cfg.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStorage(cfg.MediaRoot)
	case config.StorageS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
