package cache

import (
	"context"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-redis-cache/internal/cacheinfra"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultNamespace prefixes every key when no namespace is configured.
	DefaultNamespace = "redis_cache"
	// DefaultTTL applies when a value is saved with a non-positive ttl.
	DefaultTTL = 30 * time.Second
)

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	namespace      string
	serializer     Serializer
	serializerName string
	shadow         Shadow
	localCache     bool
	verbose        bool
	logger         logrus.FieldLogger
	defaultTTL     time.Duration
	registerer     prometheus.Registerer
	keyOptions     []KeyOption
}

// WithNamespace sets the key namespace. Empty keeps DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(o *controllerOptions) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithSerializer installs a custom serializer. It is validated by New.
func WithSerializer(s Serializer) Option {
	return func(o *controllerOptions) {
		o.serializer = s
		o.serializerName = ""
	}
}

// WithSerializerName selects a built-in serializer by name.
func WithSerializerName(name string) Option {
	return func(o *controllerOptions) {
		o.serializer = nil
		o.serializerName = name
	}
}

// WithShadow installs a local shadow cache and enables it.
func WithShadow(shadow Shadow) Option {
	return func(o *controllerOptions) {
		o.shadow = shadow
		o.localCache = shadow != nil
	}
}

// WithLocalCache toggles the local shadow cache. Enabling it without
// WithShadow uses an unbounded map.
func WithLocalCache(enabled bool) Option {
	return func(o *controllerOptions) {
		o.localCache = enabled
	}
}

// WithVerbose turns on hit, store and invalidation logging.
func WithVerbose(verbose bool) Option {
	return func(o *controllerOptions) {
		o.verbose = verbose
	}
}

// WithLogger sets the logger used in verbose mode.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *controllerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultTTL sets the expiry used when callers pass a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *controllerOptions) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithMetrics registers lookup, store and invalidation counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *controllerOptions) {
		o.registerer = reg
	}
}

// WithKeyOptions passes options to the controller's KeyBuilder.
func WithKeyOptions(opts ...KeyOption) Option {
	return func(o *controllerOptions) {
		o.keyOptions = append(o.keyOptions, opts...)
	}
}

// Controller runs the lookup, compute and store cycle against a Store and
// offers tag and function scoped invalidation. It is safe for concurrent use.
type Controller struct {
	store      Store
	keys       *KeyBuilder
	serializer Serializer
	shadow     Shadow
	logger     logrus.FieldLogger
	verbose    bool
	defaultTTL time.Duration
	metrics    *metrics
}

// New builds a Controller over store. Serializer misconfiguration fails here,
// before any caching happens.
func New(store Store, opts ...Option) (*Controller, error) {
	if store == nil || (reflect.ValueOf(store).Kind() == reflect.Ptr && reflect.ValueOf(store).IsNil()) {
		return nil, newError(ErrNilStore, goerrors.CategoryBadInput, CodeNilStore, "controller requires a store", nil)
	}

	o := controllerOptions{
		namespace:  DefaultNamespace,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	serializer := o.serializer
	if serializer == nil {
		var err error
		serializer, err = SerializerByName(o.serializerName)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidateSerializer(serializer); err != nil {
		return nil, err
	}

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		store:      store,
		keys:       NewKeyBuilder(o.namespace, o.keyOptions...),
		serializer: serializer,
		logger:     o.logger,
		verbose:    o.verbose,
		defaultTTL: o.defaultTTL,
		metrics:    m,
	}

	if o.localCache {
		c.shadow = o.shadow
		if c.shadow == nil {
			c.shadow = cacheinfra.NewMapShadow()
		}
	}

	if c.logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.InfoLevel)
		c.logger = logger
	}

	return c, nil
}

// Namespace returns the key namespace.
func (c *Controller) Namespace() string {
	return c.keys.Namespace()
}

// Keys returns the KeyBuilder shared by every call routed through c.
func (c *Controller) Keys() *KeyBuilder {
	return c.keys
}

// Store returns the underlying store.
func (c *Controller) Store() Store {
	return c.store
}

// Key builds the cache key for a call.
func (c *Controller) Key(tags []string, function string, args []any, kwargs map[string]any) (string, error) {
	return c.keys.Build(tags, function, args, kwargs)
}

// Load looks key up in the shadow, then in the store, and decodes a hit into
// dst. dst must be a non-nil pointer.
func (c *Controller) Load(ctx context.Context, key string, dst any) (bool, error) {
	if value, ok := c.shadowLoad(key); ok && assign(dst, value) {
		c.metrics.lookup(c.Namespace(), resultShadowHit)
		c.logHit(key)
		return true, nil
	}

	return c.loadRemote(ctx, key, dst)
}

// Save encodes value and writes it with ttl. A non-positive ttl uses the
// default. The shadow is updated only after the store accepted the write.
func (c *Controller) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	payload, err := c.serializer.Encode(value)
	if err != nil {
		return err
	}

	if err := c.store.Put(ctx, key, payload, ttl); err != nil {
		return err
	}

	if c.shadow != nil {
		c.shadow.Store(key, value)
	}
	c.metrics.stored(c.Namespace())

	if c.verbose {
		c.logger.WithFields(logrus.Fields{
			"key":     key,
			"size_kb": float64(len(payload)) / 1024,
			"ttl":     ttl.String(),
		}).Info("cache added")
	}
	return nil
}

// Delete removes key from the store and the shadow.
func (c *Controller) Delete(ctx context.Context, key string) error {
	if c.shadow != nil {
		c.shadow.Delete(key)
	}
	return c.store.Delete(ctx, key)
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Failures from fn are returned unchanged and never stored. When
// ctx is done once fn returns, the value is not stored and ctx.Err() is
// returned.
//
// T must be a concrete type. A value decoded from the store has no record of
// its dynamic type, so interface types are rejected with ErrInterfaceResult.
func GetOrCompute[T any](ctx context.Context, c *Controller, key string, ttl time.Duration, fn FetchFn[T]) (T, error) {
	var zero T

	if rt := reflect.TypeOf((*T)(nil)).Elem(); rt.Kind() == reflect.Interface {
		return zero, interfaceResult(rt)
	}

	if value, ok := c.shadowLoad(key); ok {
		if typed, ok := value.(T); ok {
			c.metrics.lookup(c.Namespace(), resultShadowHit)
			c.logHit(key)
			return typed, nil
		}
	}

	var cached T
	hit, err := c.loadRemote(ctx, key, &cached)
	if err != nil {
		return zero, err
	}
	if hit {
		return cached, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if err := c.Save(ctx, key, value, ttl); err != nil {
		return zero, err
	}
	return value, nil
}

// FindByTag returns the keys in the namespace carrying tag.
func (c *Controller) FindByTag(ctx context.Context, tag string) ([]string, error) {
	return c.find(ctx, c.keys.TagPattern(tag), func(key string) bool {
		return c.keys.HasTag(key, tag)
	})
}

// FindByFunction returns the keys produced by function. A bare name such as
// "heavyCompute" matches any package qualifier.
func (c *Controller) FindByFunction(ctx context.Context, function string) ([]string, error) {
	return c.find(ctx, c.keys.FunctionPattern(function), func(key string) bool {
		return c.keys.HasFunction(key, function)
	})
}

// FindAll returns every key in the namespace.
func (c *Controller) FindAll(ctx context.Context) ([]string, error) {
	return c.find(ctx, c.keys.NamespacePattern(), func(key string) bool {
		_, ok := c.keys.Parse(key)
		return ok
	})
}

// InvalidateByTag deletes every key carrying tag. It is best effort: keys
// written while the scan runs may survive.
func (c *Controller) InvalidateByTag(ctx context.Context, tag string) (int, error) {
	keys, err := c.FindByTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	return c.deleteKeys(ctx, "tag", tag, keys)
}

// InvalidateByFunction deletes every key produced by function.
func (c *Controller) InvalidateByFunction(ctx context.Context, function string) (int, error) {
	keys, err := c.FindByFunction(ctx, function)
	if err != nil {
		return 0, err
	}
	return c.deleteKeys(ctx, "function", function, keys)
}

// Clear deletes every key in the namespace.
func (c *Controller) Clear(ctx context.Context) (int, error) {
	keys, err := c.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return c.deleteKeys(ctx, "namespace", c.Namespace(), keys)
}

// Close closes the store.
func (c *Controller) Close() error {
	return c.store.Close()
}

func (c *Controller) loadRemote(ctx context.Context, key string, dst any) (bool, error) {
	payload, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		c.metrics.lookup(c.Namespace(), resultMiss)
		return false, nil
	}
	if err := c.serializer.Decode(payload, dst); err != nil {
		return false, err
	}
	c.metrics.lookup(c.Namespace(), resultHit)
	c.logHit(key)
	return true, nil
}

func (c *Controller) find(ctx context.Context, pattern string, match func(string) bool) ([]string, error) {
	var keys []string
	for key, err := range c.store.Scan(ctx, pattern) {
		if err != nil {
			return keys, err
		}
		if match(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *Controller) deleteKeys(ctx context.Context, scope, value string, keys []string) (int, error) {
	deleted := 0
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			c.metrics.invalidated(c.Namespace(), deleted)
			return deleted, err
		}
		deleted++
	}

	c.metrics.invalidated(c.Namespace(), deleted)
	if c.verbose {
		c.logger.WithFields(logrus.Fields{
			scope:     value,
			"deleted": deleted,
		}).Info("cache invalidated")
	}
	return deleted, nil
}

func (c *Controller) shadowLoad(key string) (any, bool) {
	if c.shadow == nil {
		return nil, false
	}
	return c.shadow.Load(key)
}

func (c *Controller) logHit(key string) {
	if c.verbose {
		c.logger.WithField("key", key).Info("cache hit")
	}
}

// assign copies a shadow value into dst when the types line up.
func assign(dst, value any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return false
	}
	target := rv.Elem()
	if value == nil {
		switch target.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice:
			target.Set(reflect.Zero(target.Type()))
			return true
		}
		return false
	}
	src := reflect.ValueOf(value)
	if !src.Type().AssignableTo(target.Type()) {
		return false
	}
	target.Set(src)
	return true
}
