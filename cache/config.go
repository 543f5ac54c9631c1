package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-redis-cache/internal/cacheinfra"
)

// Connection URL sources, in resolution order after Config.URL.
const (
	EnvCacheURL = "REDIS_CACHE_URL"
	EnvRedisURL = "REDIS_URL"
	DefaultURL  = "redis://localhost:6379/0"
)

// Config describes a cache connection and its controller behaviour.
type Config struct {
	// URL is the store connection target. Supported schemes are redis,
	// rediss, unix and memory. Empty falls back to the environment.
	URL string

	// Namespace prefixes every key. Default: redis_cache
	Namespace string

	// Serializer names a built-in codec: binary (default) or json.
	Serializer string

	// LocalCache enables the in-process shadow in front of the store.
	LocalCache bool

	// LocalCacheCapacity bounds the shadow. Zero keeps it unbounded.
	LocalCacheCapacity int

	// LocalCacheTTL evicts bounded shadow entries after this duration.
	// Only used when LocalCacheCapacity is set.
	LocalCacheTTL time.Duration

	Verbose bool

	// DefaultTTL applies to values saved without an explicit ttl.
	DefaultTTL time.Duration
}

// DefaultConfig returns a Config populated with defaults. URL is left empty so
// the environment is consulted.
func DefaultConfig() Config {
	return Config{
		Namespace:     DefaultNamespace,
		Serializer:    SerializerBinary,
		LocalCacheTTL: 5 * time.Minute,
		DefaultTTL:    DefaultTTL,
	}
}

// ResolveURL returns the explicit URL, then REDIS_CACHE_URL, then REDIS_URL,
// then DefaultURL.
func (c Config) ResolveURL() string {
	if c.URL != "" {
		return c.URL
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheURL)); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisURL)); v != "" {
		return v
	}
	return DefaultURL
}

// Identity is the key under which controllers built from equal configurations
// are shared.
func (c Config) Identity() string {
	namespace := c.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "|" + c.ResolveURL()
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.By(validateURL)),
		validation.Field(&c.Namespace, validation.By(validateNamespace)),
		validation.Field(&c.Serializer, validation.In("", SerializerBinary, SerializerJSON, "msgpack")),
		validation.Field(&c.LocalCacheCapacity, validation.Min(0)),
		validation.Field(&c.LocalCacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.DefaultTTL, validation.Min(time.Duration(0))),
	)
	if err == nil {
		return nil
	}

	verr := goerrors.FromOzzoValidation(err, "invalid cache configuration")
	verr.Source = errors.Join(ErrInvalidConfig, err)
	return verr.WithTextCode(CodeInvalidConfig)
}

func validateURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if !supportedScheme(u.Scheme) {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

func validateNamespace(value any) error {
	namespace, _ := value.(string)
	if strings.ContainsAny(namespace, "*?[]") {
		return errors.New("must not contain glob characters")
	}
	return nil
}

func supportedScheme(scheme string) bool {
	switch scheme {
	case "redis", "rediss", "unix", "memory":
		return true
	}
	return false
}

// Options translates the configuration into controller options. Explicit
// options passed to Open are applied after these.
func (c Config) Options() []Option {
	opts := []Option{
		WithNamespace(c.Namespace),
		WithSerializerName(c.Serializer),
		WithVerbose(c.Verbose),
		WithDefaultTTL(c.DefaultTTL),
	}
	if c.LocalCache {
		opts = append(opts, WithLocalCache(true))
	}
	return opts
}

// Open validates cfg, connects the store selected by the URL scheme and builds
// a Controller over it.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.ResolveURL())
	if err != nil {
		return nil, err
	}

	all := cfg.Options()
	if cfg.LocalCache && cfg.LocalCacheCapacity > 0 {
		shadow, err := cacheinfra.NewBoundedShadow(cacheinfra.ShadowConfig{
			Capacity: cfg.LocalCacheCapacity,
			TTL:      cfg.LocalCacheTTL,
		})
		if err != nil {
			_ = store.Close()
			return nil, newError(ErrInvalidConfig, goerrors.CategoryValidation, CodeInvalidConfig, "invalid local cache configuration", err)
		}
		all = append(all, WithShadow(shadow))
	}
	all = append(all, opts...)

	controller, err := New(store, all...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return controller, nil
}

// OpenStore connects the store for rawURL. redis, rediss and unix URLs open a
// Redis client; memory:// opens an in-process store.
func OpenStore(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newError(ErrUnsupportedScheme, goerrors.CategoryBadInput, CodeUnsupportedScheme, "invalid connection URL", err)
	}

	switch u.Scheme {
	case "redis", "rediss", "unix":
		store, err := cacheinfra.OpenRedis(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return cacheinfra.NewMemoryStore(), nil
	default:
		return nil, newError(
			ErrUnsupportedScheme,
			goerrors.CategoryBadInput,
			CodeUnsupportedScheme,
			fmt.Sprintf("unsupported connection scheme %q", u.Scheme),
			nil,
		)
	}
}
