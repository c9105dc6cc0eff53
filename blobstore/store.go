// Package blobstore abstracts whole-object storage for snapshot and
// journal shipping. Backends exist for the local filesystem, memory
// (tests), Amazon S3 and MinIO-compatible object stores.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a named blob does not exist.
// All implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// BlobStore stores immutable named blobs. Put replaces any existing blob
// of the same name atomically: readers either see the old content or the
// new, never a mix.
type BlobStore interface {
	// Put writes the blob named name from r. size is the exact content
	// length, or -1 if unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open returns a reader over the blob and its size.
	// The caller owns the returned ReadCloser.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
