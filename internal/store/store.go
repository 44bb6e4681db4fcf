package store

import (
	"context"
	"time"
)

// Store is the ephemeral object store every stateful component is built on.
// Keys expire by store-enforced TTL; the application never sweeps, it only
// reacts to domain.ErrNotFound. Delete of an absent key is a no-op. The
// pending-job hand-off between the api and worker processes rides on the
// same store via Push/Pop.
type Store interface {
	// Put writes value under key with the given TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// PutWithContentType writes value plus a content-type tag sharing the TTL.
	PutWithContentType(ctx context.Context, key string, value []byte, contentType string, ttl time.Duration) error
	// Get returns the value under key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// GetWithContentType returns the value and its content-type tag, or domain.ErrNotFound.
	GetWithContentType(ctx context.Context, key string) ([]byte, string, error)
	// Delete removes key and any content-type tag; absent keys are not an error.
	Delete(ctx context.Context, key string) error
	// Incr atomically increments the counter under key and returns the new count.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Push appends value to the tail of the list under key.
	Push(ctx context.Context, key string, value []byte) error
	// Pop blocks up to timeout for a value from the head of the list under
	// key, returning domain.ErrNotFound when the wait expires empty.
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
}
