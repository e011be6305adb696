package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("store: key not found")

// ErrUnavailable wraps backend I/O failures.
var ErrUnavailable = errors.New("store: backend unavailable")

// Store is a string key/value store. Remove of a missing key is a no-op.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
