package cacheinfra

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultScanCount is the COUNT hint sent with every SCAN call.
const DefaultScanCount = 100

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithScanCount sets the COUNT hint for SCAN. Non-positive values are ignored.
func WithScanCount(n int64) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

// WithOwnedClient makes Close close the client. Stores created by OpenRedis
// own their client.
func WithOwnedClient() RedisOption {
	return func(s *RedisStore) {
		s.owned = true
	}
}

// RedisStore keeps payloads in Redis. Expiry is enforced by the server.
type RedisStore struct {
	client    redis.UniversalClient
	scanCount int64
	owned     bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership of the
// client unless WithOwnedClient is given.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		scanCount: DefaultScanCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis parses url, connects and pings once. It does not retry.
//
// Example:
//
//	store, err := cacheinfra.OpenRedis(ctx, "redis://localhost:6379/0")
func OpenRedis(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return NewRedisStore(client, append([]RedisOption{WithOwnedClient()}, opts...)...), nil
}

// Client exposes the underlying client.
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// Put stores payload with SET key payload PX ttl. A non-positive ttl stores the
// key without expiry.
func (s *RedisStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, payload, max(ttl, 0)).Err()
}

// Get returns the payload at key, reporting false when the key is absent.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Delete removes key. DEL on a missing key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Scan walks the keyspace with SCAN MATCH pattern, fetching the next batch
// only when the previous one is consumed.
func (s *RedisStore) Scan(ctx context.Context, pattern string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		it := s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator()
		for it.Next(ctx) {
			if !yield(it.Val(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", err)
		}
	}
}

// Close closes the client when the store owns it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
