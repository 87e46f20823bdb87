// Package blob abstracts the object store the pipeline reads and writes.
// Keys are slash-delimited strings; the pipeline never lists or scans the
// store, every key it touches is derived by the keys package.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("blob: object not found")

// Store is the minimal contract every stage depends on. Writers never target
// the same key concurrently (per-stage key uniqueness guarantees that), so
// write-once-per-key is the only discipline implementations must support.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
