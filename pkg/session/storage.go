package session

import (
	"context"
)

// Storage persists session snapshots. Implementations must be safe for concurrent use.
type Storage interface {
	// Write stores data under key, replacing what was there
	Write(ctx context.Context, key string, data []byte) error
	// Read returns os.ErrNotExist for unknown keys
	Read(ctx context.Context, key string) ([]byte, error)
	// List returns all keys starting with prefix, newest (descending) first
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete is a no-op for unknown keys
	Delete(ctx context.Context, key string) error
	Close() error
}
