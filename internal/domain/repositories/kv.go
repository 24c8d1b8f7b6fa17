package repositories

import "context"

// KVStore is the durable key-value store behind workspace persistence.
// Values are opaque JSON documents.
type KVStore interface {
	// Get returns the value for key, or domain.ErrNotFound if absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value for key
	Put(ctx context.Context, key string, value []byte) error

	// PutMany writes all entries atomically: either every key is written or none
	PutMany(ctx context.Context, entries map[string][]byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store
	Clear(ctx context.Context) error

	// Close releases the underlying resources
	Close() error
}
