package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// ShadowConfig holds the configuration for the bounded shadow cache.
type ShadowConfig struct {
	// Capacity defines the maximum number of entries that the shadow can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Zero uses the default of 64, capped at Capacity.
	NumShards int

	// TTL evicts entries after this duration regardless of the remote
	// expiry. Zero uses the default of 5 minutes.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the shadow reaches its capacity. Zero uses the default of 10.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultShadowConfig returns a ShadowConfig with sensible defaults.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

func (c ShadowConfig) withDefaults() ShadowConfig {
	def := DefaultShadowConfig()
	if c.NumShards == 0 {
		c.NumShards = def.NumShards
		if c.Capacity > 0 && c.Capacity < c.NumShards {
			c.NumShards = c.Capacity
		}
	}
	if c.TTL == 0 {
		c.TTL = def.TTL
	}
	if c.EvictionPercentage == 0 {
		c.EvictionPercentage = def.EvictionPercentage
	}
	return c
}

// ToSturdycOptions converts the config to sturdyc options. Capacity, shards,
// TTL and eviction percentage are constructor arguments and are not included.
func (c ShadowConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c ShadowConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards < 0 {
		return &ConfigError{Field: "NumShards", Message: "must be non-negative"}
	}
	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}
	if c.TTL < 0 {
		return &ConfigError{Field: "TTL", Message: "must be non-negative"}
	}
	if c.EvictionPercentage < 0 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 0 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// BoundedShadow is a shadow cache with a capacity and a per-entry TTL, backed
// by a sturdyc client. Entries may disappear before the remote key expires.
type BoundedShadow struct {
	client *sturdyc.Client[any]
}

// NewBoundedShadow validates cfg and builds the sturdyc client.
func NewBoundedShadow(cfg ShadowConfig) (*BoundedShadow, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &BoundedShadow{client: client}, nil
}

func (s *BoundedShadow) Load(key string) (any, bool) {
	return s.client.Get(key)
}

func (s *BoundedShadow) Store(key string, value any) {
	s.client.Set(key, value)
}

func (s *BoundedShadow) Delete(key string) {
	s.client.Delete(key)
}

func (s *BoundedShadow) Len() int {
	return s.client.Size()
}

// Keys returns the keys currently held.
func (s *BoundedShadow) Keys() []string {
	return s.client.ScanKeys()
}
