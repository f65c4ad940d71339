package domain

import (
	"context"
	"io"
)

// IngestionJob describes one pending thumbnail derivation. It is passed by
// value from the request path to the worker pool and never persisted.
type IngestionJob struct {
	PhotoID      int64
	SourceKey    string
	ThumbnailKey string
}

// BlobStore abstracts durable storage of original and derived image bytes.
// Keys are relative, slash separated paths under the store root.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, suggestedName string) (string, error)
	// ThumbnailKey returns the derived key (without extension) for an
	// original key.
	ThumbnailKey(originalKey string) string
	Path(key string) (string, error)
	URL(key string) string
	KeyFromURL(url string) (string, bool)
	// Remove deletes a blob, best effort. It reports false only when the
	// blob still exists afterwards.
	Remove(key string) bool
}

// JobQueue accepts ingestion jobs for background execution.
type JobQueue interface {
	Submit(job IngestionJob) error
	Cancel(photoID int64)
	Pending(photoID int64) bool
}
