package funccache

import (
	"context"

	"github.com/goliatone/go-redis-cache/cache"
)

// Result carries the outcome of an asynchronous call.
type Result[R any] struct {
	Value R
	Err   error
}

// AsyncFunc starts a computation and delivers exactly one Result on the
// returned channel.
type AsyncFunc[R any] func(ctx context.Context, args ...any) <-chan Result[R]

// WrapAsync returns fn with caching. Each call starts one goroutine that runs
// the lookup, then awaits fn on a miss, then stores the value, in that order,
// before delivering a single Result. Concurrent misses on the same key are not
// coalesced.
func WrapAsync[R any](controller *cache.Controller, fn AsyncFunc[R], opts ...Option) AsyncFunc[R] {
	name := FunctionName(fn)
	cached := newCached(controller, name, func(ctx context.Context, args ...any) (R, error) {
		return await(ctx, name, fn(ctx, args...))
	}, opts)

	return func(ctx context.Context, args ...any) <-chan Result[R] {
		out := make(chan Result[R], 1)
		go func() {
			defer close(out)
			value, err := cached.Call(ctx, args...)
			out <- Result[R]{Value: value, Err: err}
		}()
		return out
	}
}

func await[R any](ctx context.Context, name string, results <-chan Result[R]) (R, error) {
	var zero R
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res, ok := <-results:
		if !ok {
			return zero, noResult(name)
		}
		return res.Value, res.Err
	}
}
