package funccache

import (
	"context"
	"time"

	"github.com/goliatone/go-redis-cache/cache"
)

// Func is the shape every wrapped function is adapted to. Arguments take part
// in the cache key; cache.Kw values are rendered as keyword arguments. R must
// be a concrete type.
type Func[R any] func(ctx context.Context, args ...any) (R, error)

// Option configures a wrapped function.
type Option func(*options)

type options struct {
	tags []string
	ttl  time.Duration
	name string
}

// WithTags adds static tags to every key of the wrapped function.
func WithTags(tags ...string) Option {
	return func(o *options) {
		o.tags = dedupeStrings(append(o.tags, tags...))
	}
}

// WithTTL sets the expiry of cached results. Zero uses the controller default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithName overrides the function identity used in keys. Use it for closures,
// whose runtime names are not stable across edits.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Cached is a function bound to a controller. Each Call looks up the key
// derived from its arguments and only runs the function on a miss.
type Cached[R any] struct {
	controller *cache.Controller
	fn         Func[R]
	name       string
	tags       []string
	ttl        time.Duration
}

// New binds fn to controller. The function identity comes from WithName or
// from the runtime name of fn.
func New[R any](controller *cache.Controller, fn Func[R], opts ...Option) *Cached[R] {
	return newCached(controller, FunctionName(fn), fn, opts)
}

func newCached[R any](controller *cache.Controller, name string, fn Func[R], opts []Option) *Cached[R] {
	o := options{name: name}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cached[R]{
		controller: controller,
		fn:         fn,
		name:       o.name,
		tags:       o.tags,
		ttl:        o.ttl,
	}
}

// Name returns the function identity used in keys.
func (f *Cached[R]) Name() string {
	return f.name
}

// Key returns the key a call with args would use. Tags attached to ctx with
// WithCacheTags are included.
func (f *Cached[R]) Key(ctx context.Context, args ...any) (string, error) {
	if f.controller == nil {
		return "", nilController(f.name)
	}
	positional, kwargs := cache.SplitArgs(args)
	return f.controller.Key(callTags(ctx, f.tags), f.name, positional, kwargs)
}

// Call returns the cached result for args or runs the function and caches
// what it returns. Errors from the function are returned unchanged and are not
// cached.
func (f *Cached[R]) Call(ctx context.Context, args ...any) (R, error) {
	var zero R

	key, err := f.Key(ctx, args...)
	if err != nil {
		return zero, err
	}

	return cache.GetOrCompute(ctx, f.controller, key, f.ttl, func(ctx context.Context) (R, error) {
		return f.fn(ctx, args...)
	})
}

// Forget deletes the cached result for args.
func (f *Cached[R]) Forget(ctx context.Context, args ...any) error {
	key, err := f.Key(ctx, args...)
	if err != nil {
		return err
	}
	return f.controller.Delete(ctx, key)
}

// Invalidate deletes every cached result of the function in the namespace,
// whatever its arguments or tags.
func (f *Cached[R]) Invalidate(ctx context.Context) (int, error) {
	if f.controller == nil {
		return 0, nilController(f.name)
	}
	return f.controller.InvalidateByFunction(ctx, f.name)
}

// Wrap returns fn with caching. The lookup, the call and the store all finish
// before the wrapped function returns.
func Wrap[R any](controller *cache.Controller, fn Func[R], opts ...Option) Func[R] {
	return New(controller, fn, opts...).Call
}

// WrapSync wraps a function without a context parameter.
func WrapSync[R any](controller *cache.Controller, fn func(args ...any) (R, error), opts ...Option) func(args ...any) (R, error) {
	cached := newCached(controller, FunctionName(fn), func(_ context.Context, args ...any) (R, error) {
		return fn(args...)
	}, opts)
	return func(args ...any) (R, error) {
		return cached.Call(context.Background(), args...)
	}
}

// Wrap1 wraps a typed function of one argument.
func Wrap1[A, R any](controller *cache.Controller, fn func(context.Context, A) (R, error), opts ...Option) func(context.Context, A) (R, error) {
	cached := newCached(controller, FunctionName(fn), func(ctx context.Context, args ...any) (R, error) {
		return fn(ctx, argAs[A](args[0]))
	}, opts)
	return func(ctx context.Context, a A) (R, error) {
		return cached.Call(ctx, a)
	}
}

// Wrap2 wraps a typed function of two arguments.
func Wrap2[A, B, R any](controller *cache.Controller, fn func(context.Context, A, B) (R, error), opts ...Option) func(context.Context, A, B) (R, error) {
	cached := newCached(controller, FunctionName(fn), func(ctx context.Context, args ...any) (R, error) {
		return fn(ctx, argAs[A](args[0]), argAs[B](args[1]))
	}, opts)
	return func(ctx context.Context, a A, b B) (R, error) {
		return cached.Call(ctx, a, b)
	}
}

// Wrap3 wraps a typed function of three arguments.
func Wrap3[A, B, C, R any](controller *cache.Controller, fn func(context.Context, A, B, C) (R, error), opts ...Option) func(context.Context, A, B, C) (R, error) {
	cached := newCached(controller, FunctionName(fn), func(ctx context.Context, args ...any) (R, error) {
		return fn(ctx, argAs[A](args[0]), argAs[B](args[1]), argAs[C](args[2]))
	}, opts)
	return func(ctx context.Context, a A, b B, c C) (R, error) {
		return cached.Call(ctx, a, b, c)
	}
}

// argAs converts a boxed argument back to its parameter type. A nil interface
// argument becomes the zero value.
func argAs[T any](v any) T {
	t, _ := v.(T)
	return t
}
