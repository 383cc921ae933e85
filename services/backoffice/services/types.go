package services

import (
	"context"
	"errors"
	"io"
	"time"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/fileshare"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/cache"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

// BlobStore is the object storage used for product images and uploaded documents.
type BlobStore interface {
	Upload(ctx context.Context, container, name string, body io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, container, name string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, container, name string) error
	List(ctx context.Context, container string) ([]awspkg.BlobInfo, error)
	PresignGet(ctx context.Context, container, name string, expiry time.Duration) (string, error)
}

// FileShare is the directory-structured file store.
type FileShare interface {
	Upload(ctx context.Context, share, directory, filename string, body io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, share, directory, filename string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, share, directory, filename string) error
	List(ctx context.Context, share, directory string) ([]fileshare.FileInfo, error)
}

// OrderQueue receives one message per placed order.
type OrderQueue interface {
	Send(ctx context.Context, body string) (string, error)
}

// Cache is a string key/value cache with expiry.
// QueueDepth reports how many messages are waiting on a queue.
type QueueDepth interface {
	Count(ctx context.Context) (int, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ErrCacheMiss is returned by Cache.Get for absent keys.
var ErrCacheMiss = cache.ErrMiss

// storeError maps row store failures to application errors. what names the row for
// the client, e.g. "Product".
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("%s not found", what)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.Conflict("%s was changed by someone else. Reload and try again", what)
	default:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Transport("Storage is unavailable, please try again later", err)
	}
}
