package cacheinfra

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time // zero value = never expires
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now as the expiry clock.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore is an in-process store with Redis-like semantics. Expired
// entries are dropped lazily when they are read or scanned.
type MemoryStore struct {
	entries *xsync.MapOf[string, memoryEntry]
	now     func() time.Time
	closed  atomic.Bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: xsync.NewMapOf[string, memoryEntry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put overwrites key. A non-positive ttl stores the key without expiry.
func (s *MemoryStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	entry := memoryEntry{payload: slices.Clone(payload)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries.Store(key, entry)
	return nil
}

// Get returns a copy of the payload at key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}

	entry, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	if entry.expired(s.now()) {
		s.entries.Compute(key, func(current memoryEntry, loaded bool) (memoryEntry, bool) {
			return current, !loaded || current.expired(s.now())
		})
		return nil, false, nil
	}
	return slices.Clone(entry.payload), true, nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.entries.Delete(key)
	return nil
}

// Scan yields live keys matching a Redis glob pattern in lexical order. The
// key set is snapshotted when iteration starts.
func (s *MemoryStore) Scan(ctx context.Context, pattern string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := s.check(ctx); err != nil {
			yield("", err)
			return
		}

		matcher, err := compilePattern(pattern)
		if err != nil {
			yield("", err)
			return
		}

		now := s.now()
		var keys []string
		s.entries.Range(func(key string, entry memoryEntry) bool {
			if !entry.expired(now) && matcher.Match(key) {
				keys = append(keys, key)
			}
			return true
		})
		slices.Sort(keys)

		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

// Len counts live entries.
func (s *MemoryStore) Len() int {
	now := s.now()
	n := 0
	s.entries.Range(func(_ string, entry memoryEntry) bool {
		if !entry.expired(now) {
			n++
		}
		return true
	})
	return n
}

// Close drops every entry. Later calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.entries.Clear()
	}
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return ctx.Err()
}
