// Package funccache adds result caching to ordinary functions.
//
// # Overview
//
// A wrapped function derives a key from its qualified name, its arguments and
// its tags, returns the cached value on a hit and otherwise runs the function
// and stores its result:
//
//	heavy := funccache.Wrap2(controller, heavyCompute,
//		funccache.WithTags("group1"),
//		funccache.WithTTL(10*time.Second),
//	)
//
//	out, err := heavy(ctx, []int{1, 2, 3}, []int{4, 5, 6})
//
// The first call runs heavyCompute and stores the result under
//
//	redis_cache:00=group1:11=main.heavyCompute([1, 2, 3].[4, 5, 6])
//
// Later calls with equal arguments return the stored value until it expires.
//
// # Combinators
//
//   - Wrap: func(ctx, args ...any) (R, error)
//   - WrapSync: func(args ...any) (R, error), called with a background context
//   - Wrap1, Wrap2, Wrap3: typed functions of one to three arguments
//   - WrapAsync: functions delivering a Result on a channel
//
// New returns a Cached value instead, which also exposes Key, Forget and
// Invalidate for the wrapped function.
//
// # Function Identity
//
// Names come from the runtime, e.g. main.heavyCompute or
// example.com/app/report.(*Service).Build. Closures get generated names such
// as main.main.func1 that change when the enclosing code changes, so give them
// a stable identity with WithName.
//
// # Tags
//
// WithTags sets static tags. WithCacheTags attaches more tags to a context and
// every wrapped call made with it appends them after the static ones. Tags
// only affect the key; cache.Controller.InvalidateByTag removes every entry
// carrying a tag.
//
// # Errors
//
// Errors returned by the wrapped function propagate unchanged and are never
// cached. Failures of the caching machinery (unrenderable arguments, values the
// serializer rejects, store I/O) are returned instead of calling through.
//
// The result type R must be concrete. A result read back from Redis carries no
// record of its dynamic type, so a function declared to return any or another
// interface fails every call with cache.ErrInterfaceResult.
//
// There is no protection against concurrent misses: two callers missing the
// same key both run the function, and the last store wins.
package funccache
