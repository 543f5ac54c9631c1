// Package cache derives deterministic keys for function calls and runs the
// lookup, compute and store cycle against a remote key-value store.
//
// # Overview
//
// The package exports:
//
//   - KeyBuilder: renders a function identity, its arguments and optional tags
//     into a store key
//   - Serializer: the value codec port, with binary (msgpack) and json built-ins
//   - Store: the remote store contract, implemented over Redis and in memory
//   - Controller: lookup, store and invalidation by tag or function
//
// # Key Format
//
// Keys have three colon separated parts:
//
//	{namespace}:{tag segment}:{function segment}
//
// The tag segment is empty or a list of 00={tag} entries joined by ":". The
// function segment is 11={qualified name}({args}) where positional arguments are
// joined by "." and keyword arguments follow as name=value, sorted by name:
//
//	redis_cache:00=group1:11=main.heavyCompute([1, 2, 3].[4, 5, 6])
//	redis_cache::11=main.f()
//
// Arguments are rendered by value. Maps are sorted, structs render their
// exported fields and pointers render their pointee. Functions and channels
// have no stable textual form and fail with ErrUnserializableArgument.
//
// # Basic Usage
//
//	c, err := cache.Open(ctx, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	key, err := c.Key([]string{"group1"}, "main.heavyCompute", []any{a, b}, nil)
//	if err != nil {
//		return err
//	}
//	result, err := cache.GetOrCompute(ctx, c, key, 10*time.Second, func(ctx context.Context) ([]int, error) {
//		return heavyCompute(a, b), nil
//	})
//
// Errors from the computation are returned unchanged and never stored. A value
// is cached only after the computation succeeded and the context is still live.
//
// # Invalidation
//
// FindByTag and FindByFunction scan the namespace with a glob pattern and then
// verify every candidate by parsing it, so a tag never matches a longer tag
// sharing its prefix. InvalidateByTag, InvalidateByFunction and Clear delete the
// verified keys one at a time. Deletion is not transactional: keys written
// concurrently may survive.
//
// # Local Shadow
//
// WithLocalCache keeps decoded values in process in front of the store. The
// shadow has no expiry of its own and is only cleared by Delete and the
// invalidation calls on the same Controller, so it can serve values the store
// already expired. Use Config.LocalCacheCapacity for a bounded, expiring shadow.
package cache
