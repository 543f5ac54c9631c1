package funccache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-redis-cache/cache"
)

const pkgPath = "github.com/goliatone/go-redis-cache/funccache"

var heavyCalls atomic.Int32

func heavyCompute(_ context.Context, a, b []int) ([]int, error) {
	heavyCalls.Add(1)
	out := make([]int, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out, nil
}

type calculator struct{ calls int }

func (c *calculator) Add(_ context.Context, a, b int) (int, error) {
	c.calls++
	return a + b, nil
}

func newRedisController(t *testing.T, opts ...cache.Option) (*cache.Controller, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := cache.DefaultConfig()
	cfg.URL = "redis://" + mr.Addr()

	c, err := cache.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func newMemoryController(t *testing.T, opts ...cache.Option) *cache.Controller {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.URL = "memory://"

	c, err := cache.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFunctionName(t *testing.T) {
	calc := &calculator{}

	assert.Equal(t, pkgPath+".heavyCompute", FunctionName(heavyCompute))
	assert.Equal(t, pkgPath+".(*calculator).Add", FunctionName(calc.Add))
	assert.Equal(t, pkgPath+".(*calculator).Add", FunctionName((*calculator).Add))
	assert.Contains(t, FunctionName(func() {}), pkgPath+".TestFunctionName.func")
	assert.Empty(t, FunctionName(nil))
	assert.Empty(t, FunctionName(42))

	var nilFn func()
	assert.Empty(t, FunctionName(nilFn))
}

func TestWrap2_HeavyCompute(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisController(t)
	heavyCalls.Store(0)

	heavy := Wrap2(c, heavyCompute, WithTags("group1"), WithTTL(10*time.Second))
	key := "redis_cache:00=group1:11=" + pkgPath + ".heavyCompute([1, 2, 3].[4, 5, 6])"

	out, err := heavy(ctx, []int{1, 2, 3}, []int{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 10, 18}, out)
	assert.Equal(t, int32(1), heavyCalls.Load())
	assert.True(t, mr.Exists(key), "keys: %v", mr.Keys())
	assert.Equal(t, 10*time.Second, mr.TTL(key))

	out, err = heavy(ctx, []int{1, 2, 3}, []int{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 10, 18}, out)
	assert.Equal(t, int32(1), heavyCalls.Load(), "second call served from cache")

	mr.FastForward(10 * time.Second)

	out, err = heavy(ctx, []int{1, 2, 3}, []int{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 10, 18}, out)
	assert.Equal(t, int32(2), heavyCalls.Load(), "expired entry recomputed")
}

func TestWrap_DistinctArgumentsDistinctEntries(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)

	var calls int
	double := Wrap(c, func(_ context.Context, args ...any) (int, error) {
		calls++
		return args[0].(int) * 2, nil
	}, WithName("math.double"))

	for _, n := range []int{1, 2, 1, 2, 3} {
		out, err := double(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, n*2, out)
	}
	assert.Equal(t, 3, calls)

	keys, err := c.FindByFunction(ctx, "double")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestWrap_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)
	boom := errors.New("boom")

	var calls int
	flaky := Wrap(c, func(_ context.Context, args ...any) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}, WithName("svc.flaky"))

	_, err := flaky(ctx, "x")
	assert.Same(t, boom, err)

	keys, err := c.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	out, err := flaky(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)

	out, err = flaky(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestWrap_KeywordArguments(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)

	fn := New(c, func(_ context.Context, args ...any) (int, error) {
		return 0, nil
	}, WithName("mod.scaled"))

	key, err := fn.Key(ctx, 1, cache.Kw("scale", 2), cache.Kw("offset", "a"))
	require.NoError(t, err)
	assert.Equal(t, `redis_cache::11=mod.scaled(1.offset="a".scale=2)`, key)

	reordered, err := fn.Key(ctx, 1, cache.Kw("offset", "a"), cache.Kw("scale", 2))
	require.NoError(t, err)
	assert.Equal(t, key, reordered)
}

func TestWrap_UnserializableArgument(t *testing.T) {
	c := newMemoryController(t)

	var calls int
	fn := Wrap(c, func(_ context.Context, args ...any) (int, error) {
		calls++
		return 1, nil
	}, WithName("mod.f"))

	_, err := fn(context.Background(), make(chan int))
	assert.ErrorIs(t, err, cache.ErrUnserializableArgument)
	assert.Zero(t, calls)
}

func TestWrapSync(t *testing.T) {
	c := newMemoryController(t)

	var calls int
	concat := WrapSync(c, func(args ...any) (string, error) {
		calls++
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.(string)
		}
		return strings.Join(parts, "-"), nil
	}, WithName("text.concat"))

	for i := 0; i < 3; i++ {
		out, err := concat("a", "b")
		require.NoError(t, err)
		assert.Equal(t, "a-b", out)
	}
	assert.Equal(t, 1, calls)
}

func TestWrap1_And_Wrap3(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)

	var lenCalls int
	length := Wrap1(c, func(_ context.Context, s string) (int, error) {
		lenCalls++
		return len(s), nil
	}, WithName("text.length"))

	n, err := length(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = length(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 1, lenCalls)

	var sumCalls int
	sum := Wrap3(c, func(_ context.Context, a, b, c int) (int, error) {
		sumCalls++
		return a + b + c, nil
	}, WithName("math.sum3"))

	for i := 0; i < 2; i++ {
		total, err := sum(ctx, 1, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 6, total)
	}
	assert.Equal(t, 1, sumCalls)
}

func TestWrap2_MethodValue(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)
	calc := &calculator{}

	add := Wrap2(c, calc.Add)
	for i := 0; i < 2; i++ {
		out, err := add(ctx, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 5, out)
	}
	assert.Equal(t, 1, calc.calls)

	keys, err := c.FindByFunction(ctx, "Add")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "redis_cache::11="+pkgPath+".(*calculator).Add(2.3)", keys[0])
}

func TestCached_PerCallTags(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)

	fn := New(c, func(_ context.Context, args ...any) (string, error) {
		return "v", nil
	}, WithName("svc.report"), WithTags("reports", "reports"))

	tagged := WithCacheTags(ctx, "tenant-1", "reports")
	key, err := fn.Key(tagged, 7)
	require.NoError(t, err)
	assert.Equal(t, "redis_cache:00=reports:00=tenant-1:11=svc.report(7)", key)

	_, err = fn.Call(tagged, 7)
	require.NoError(t, err)
	_, err = fn.Call(ctx, 8)
	require.NoError(t, err)

	deleted, err := c.InvalidateByTag(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = c.InvalidateByTag(ctx, "reports")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestCached_ForgetAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newMemoryController(t)

	var calls int
	fn := New(c, func(_ context.Context, args ...any) (int, error) {
		calls++
		return args[0].(int), nil
	}, WithName("svc.lookup"))
	assert.Equal(t, "svc.lookup", fn.Name())

	for _, n := range []int{1, 2, 3} {
		_, err := fn.Call(ctx, n)
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)

	require.NoError(t, fn.Forget(ctx, 2))
	_, err := fn.Call(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)

	deleted, err := fn.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	keys, err := c.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNilController(t *testing.T) {
	fn := Wrap(nil, func(_ context.Context, args ...any) (int, error) {
		return 1, nil
	}, WithName("mod.f"))

	_, err := fn(context.Background())
	assert.ErrorIs(t, err, ErrNilController)

	_, err = New[int](nil, nil, WithName("mod.f")).Invalidate(context.Background())
	assert.ErrorIs(t, err, ErrNilController)
}

func TestWrapAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("computes once", func(t *testing.T) {
		c := newMemoryController(t)
		var calls atomic.Int32

		square := WrapAsync(c, func(_ context.Context, args ...any) <-chan Result[int] {
			calls.Add(1)
			out := make(chan Result[int], 1)
			go func() {
				n := args[0].(int)
				out <- Result[int]{Value: n * n}
			}()
			return out
		}, WithName("math.square"), WithTTL(time.Minute))

		for i := 0; i < 3; i++ {
			res := <-square(ctx, 4)
			require.NoError(t, res.Err)
			assert.Equal(t, 16, res.Value)
		}
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("error propagates and is not stored", func(t *testing.T) {
		c := newMemoryController(t)
		boom := errors.New("boom")

		failing := WrapAsync(c, func(_ context.Context, args ...any) <-chan Result[int] {
			out := make(chan Result[int], 1)
			out <- Result[int]{Err: boom}
			return out
		}, WithName("math.fail"))

		res := <-failing(ctx, 1)
		assert.Same(t, boom, res.Err)

		keys, err := c.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("closed without result", func(t *testing.T) {
		c := newMemoryController(t)

		empty := WrapAsync(c, func(_ context.Context, args ...any) <-chan Result[int] {
			out := make(chan Result[int])
			close(out)
			return out
		}, WithName("math.empty"))

		res := <-empty(ctx)
		assert.ErrorIs(t, res.Err, ErrNoResult)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		c := newMemoryController(t)
		cctx, cancel := context.WithCancel(ctx)

		blocked := WrapAsync(c, func(_ context.Context, args ...any) <-chan Result[int] {
			return make(chan Result[int])
		}, WithName("math.blocked"))

		results := blocked(cctx, 1)
		cancel()

		res, ok := <-results
		require.True(t, ok)
		assert.ErrorIs(t, res.Err, context.Canceled)

		_, ok = <-results
		assert.False(t, ok, "exactly one result is delivered")

		keys, err := c.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestWithCacheTags(t *testing.T) {
	ctx := WithCacheTags(context.Background(), "a", "", "b")
	ctx = WithCacheTags(ctx, "b", "c")

	assert.Equal(t, []string{"a", "b", "c"}, cacheTagsFromContext(ctx))
	assert.Equal(t, []string{"s", "a", "b", "c"}, callTags(ctx, []string{"s"}))
	assert.Equal(t, []string{"s"}, callTags(context.Background(), []string{"s"}))

	//nolint:staticcheck
	assert.NotNil(t, WithCacheTags(nil, "x"))

	base := context.Background()
	assert.Equal(t, base, WithCacheTags(base))
}

func TestWrap_InterfaceResultRejected(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisController(t)

	var calls int
	lookup := Wrap(c, func(_ context.Context, args ...any) (any, error) {
		calls++
		return []int{1, 2}, nil
	}, WithName("store.lookup"))

	_, err := lookup(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrInterfaceResult)
	assert.Zero(t, calls)
	assert.Empty(t, mr.Keys())

	typed := Wrap(c, func(_ context.Context, args ...any) ([]int, error) {
		calls++
		return []int{1, 2}, nil
	}, WithName("store.lookup"))

	for i := 0; i < 2; i++ {
		out, err := typed(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, out, "remote hits keep the declared type")
	}
	assert.Equal(t, 1, calls)
}
