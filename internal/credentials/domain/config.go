package domain

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/credentials/internal/validation"
)

// EvictionStrategy selects which cache entry is dropped when capacity is reached.
type EvictionStrategy string

const (
	// EvictionLRU evicts the least recently used entry.
	EvictionLRU EvictionStrategy = "lru"
	// EvictionLFU evicts the least frequently used entry.
	EvictionLFU EvictionStrategy = "lfu"
)

// ParseEvictionStrategy converts a configuration string into a strategy.
func ParseEvictionStrategy(raw string) (EvictionStrategy, error) {
	switch s := EvictionStrategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case EvictionLRU, EvictionLFU:
		return s, nil
	case "":
		return EvictionLRU, nil
	default:
		return "", fmt.Errorf("%w: unknown eviction strategy %q", ErrInvalidConfig, raw)
	}
}

const (
	// DefaultBatchConcurrency bounds in-flight batch items.
	DefaultBatchConcurrency = 10
	// DefaultCacheTTL applies when only a cache size is configured.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultCacheMaxSize applies when only a cache TTL is configured.
	DefaultCacheMaxSize = 1000
)

// CacheConfig configures the read-through cache.
type CacheConfig struct {
	Enabled  bool
	TTL      time.Duration
	MaxSize  int
	Eviction EvictionStrategy
}

// ManagerConfig is the immutable configuration snapshot of a credential manager.
type ManagerConfig struct {
	Cache             CacheConfig
	BatchConcurrency  int
	RotationThreshold float64
}

// DefaultManagerConfig returns the configuration used when no option is set.
// Caching is disabled.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Cache:             CacheConfig{Eviction: EvictionLRU},
		BatchConcurrency:  DefaultBatchConcurrency,
		RotationThreshold: DefaultRotationThreshold,
	}
}

// Validate checks the configuration and wraps failures with ErrInvalidConfig.
func (c *ManagerConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BatchConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.RotationThreshold,
			validation.Required,
			validation.Min(0.0).Exclusive(),
			validation.Max(1.0).Exclusive(),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, customValidation.WrapValidationError(err))
	}

	if !c.Cache.Enabled {
		return nil
	}
	err = validation.ValidateStruct(&c.Cache,
		validation.Field(&c.Cache.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Cache.MaxSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Cache.Eviction, validation.In(EvictionLRU, EvictionLFU)),
	)
	if err != nil {
		return fmt.Errorf("%w: cache: %v", ErrInvalidConfig, customValidation.WrapValidationError(err))
	}
	return nil
}
