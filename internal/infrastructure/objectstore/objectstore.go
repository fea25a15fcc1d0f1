// Package objectstore provides pluggable blob storage for the raw source
// documents, converted renditions, and derived artifacts (structure JSON,
// page maps) a Version owns, keyed by opaque object keys persisted on the
// Version row itself.
package objectstore

import (
	"context"
	"io"
)

// Store is the interface every object store backend implements. Unlike a
// full file-metadata system, keys here are path-shaped strings chosen by
// the caller (uploads use "documents/<doc>/versions/<id>/source.docx",
// pipeline outputs "versions/<id>/...") and no separate catalog table
// tracks them.
type Store interface {
	// Put writes the full contents of r under key, returning the number
	// of bytes written.
	Put(ctx context.Context, key string, r io.Reader) (size int64, err error)

	// Get opens key for reading. Callers must Close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	Close() error
}
