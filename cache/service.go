package cache

import (
	"context"
	"iter"
	"time"
)

// Store is the contract over the remote key-value store. Payloads are opaque
// bytes; decoding is the caller's concern.
type Store interface {
	// Put overwrites key and sets its expiry to ttl from now.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	// Get returns the payload at key. A missing or expired key reports false
	// with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan lazily yields keys matching a glob pattern. Cost is proportional
	// to the number of keys in the store, not to the number of matches.
	Scan(ctx context.Context, pattern string) iter.Seq2[string, error]
	Close() error
}

// Shadow is an in-process mirror of decoded values keyed by cache key. It
// applies no expiry of its own and may diverge from the store.
type Shadow interface {
	Load(key string) (any, bool)
	Store(key string, value any)
	Delete(key string)
	Len() int
}

// FetchFn computes the value for a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)
