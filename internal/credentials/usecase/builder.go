package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/credentials/internal/credentials/batch"
	"github.com/allisson/credentials/internal/credentials/cache"
	"github.com/allisson/credentials/internal/credentials/domain"
)

// builderOptions records optional settings shared by both builder phases.
type builderOptions struct {
	config      domain.ManagerConfig
	cacheTTL    time.Duration
	cacheSize   int
	cacheForced bool
	logger      *slog.Logger
	now         func() time.Time
}

func defaultBuilderOptions() builderOptions {
	return builderOptions{
		config: domain.DefaultManagerConfig(),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
}

// managerConfig resolves the final configuration. Caching turns on once a TTL or
// a size is set; the missing one takes its default.
func (o *builderOptions) managerConfig() domain.ManagerConfig {
	cfg := o.config
	if o.cacheForced {
		return cfg
	}
	if o.cacheTTL > 0 || o.cacheSize > 0 {
		cfg.Cache.Enabled = true
		cfg.Cache.TTL = o.cacheTTL
		cfg.Cache.MaxSize = o.cacheSize
		if cfg.Cache.TTL <= 0 {
			cfg.Cache.TTL = domain.DefaultCacheTTL
		}
		if cfg.Cache.MaxSize <= 0 {
			cfg.Cache.MaxSize = domain.DefaultCacheMaxSize
		}
	}
	if cfg.Cache.Eviction == "" {
		cfg.Cache.Eviction = domain.EvictionLRU
	}
	return cfg
}

// PendingBuilder is a credential manager builder that has no storage yet.
// It records options but cannot build; WithStorage moves it to the next phase.
type PendingBuilder struct {
	opts builderOptions
}

// NewCredentialManagerBuilder starts a builder with default options.
func NewCredentialManagerBuilder() *PendingBuilder {
	return &PendingBuilder{opts: defaultBuilderOptions()}
}

// WithStorage supplies the storage backend and sealer and returns a builder
// that can Build.
func (b *PendingBuilder) WithStorage(storage CredentialStorage, sealer Sealer) *CredentialManagerBuilder {
	return &CredentialManagerBuilder{opts: b.opts, storage: storage, sealer: sealer}
}

// CacheTTL sets the cache time to live and enables caching.
func (b *PendingBuilder) CacheTTL(ttl time.Duration) *PendingBuilder {
	b.opts.cacheTTL = ttl
	return b
}

// CacheMaxSize sets the cache capacity and enables caching.
func (b *PendingBuilder) CacheMaxSize(size int) *PendingBuilder {
	b.opts.cacheSize = size
	return b
}

// EvictionStrategy selects LRU or LFU eviction.
func (b *PendingBuilder) EvictionStrategy(strategy domain.EvictionStrategy) *PendingBuilder {
	b.opts.config.Cache.Eviction = strategy
	return b
}

// BatchConcurrency bounds in-flight items of batch operations.
func (b *PendingBuilder) BatchConcurrency(limit int) *PendingBuilder {
	b.opts.config.BatchConcurrency = limit
	return b
}

// RotationThreshold sets the remaining-lifetime fraction that triggers a rotation recommendation.
func (b *PendingBuilder) RotationThreshold(fraction float64) *PendingBuilder {
	b.opts.config.RotationThreshold = fraction
	return b
}

// ManagerConfig replaces every option with cfg, including the cache enabled flag.
func (b *PendingBuilder) ManagerConfig(cfg domain.ManagerConfig) *PendingBuilder {
	b.opts.config = cfg
	b.opts.cacheForced = true
	return b
}

// Logger sets the structured logger.
func (b *PendingBuilder) Logger(logger *slog.Logger) *PendingBuilder {
	b.opts.logger = logger
	return b
}

// Clock overrides the time source used for validation and metadata timestamps.
func (b *PendingBuilder) Clock(now func() time.Time) *PendingBuilder {
	b.opts.now = now
	return b
}

// CredentialManagerBuilder is a builder that has storage and can build a manager.
type CredentialManagerBuilder struct {
	opts    builderOptions
	storage CredentialStorage
	sealer  Sealer
}

// CacheTTL sets the cache time to live and enables caching.
func (b *CredentialManagerBuilder) CacheTTL(ttl time.Duration) *CredentialManagerBuilder {
	b.opts.cacheTTL = ttl
	return b
}

// CacheMaxSize sets the cache capacity and enables caching.
func (b *CredentialManagerBuilder) CacheMaxSize(size int) *CredentialManagerBuilder {
	b.opts.cacheSize = size
	return b
}

// EvictionStrategy selects LRU or LFU eviction.
func (b *CredentialManagerBuilder) EvictionStrategy(strategy domain.EvictionStrategy) *CredentialManagerBuilder {
	b.opts.config.Cache.Eviction = strategy
	return b
}

// BatchConcurrency bounds in-flight items of batch operations.
func (b *CredentialManagerBuilder) BatchConcurrency(limit int) *CredentialManagerBuilder {
	b.opts.config.BatchConcurrency = limit
	return b
}

// RotationThreshold sets the remaining-lifetime fraction that triggers a rotation recommendation.
func (b *CredentialManagerBuilder) RotationThreshold(fraction float64) *CredentialManagerBuilder {
	b.opts.config.RotationThreshold = fraction
	return b
}

// ManagerConfig replaces every option with cfg, including the cache enabled flag.
func (b *CredentialManagerBuilder) ManagerConfig(cfg domain.ManagerConfig) *CredentialManagerBuilder {
	b.opts.config = cfg
	b.opts.cacheForced = true
	return b
}

// Logger sets the structured logger.
func (b *CredentialManagerBuilder) Logger(logger *slog.Logger) *CredentialManagerBuilder {
	b.opts.logger = logger
	return b
}

// Clock overrides the time source used for validation and metadata timestamps.
func (b *CredentialManagerBuilder) Clock(now func() time.Time) *CredentialManagerBuilder {
	b.opts.now = now
	return b
}

// Build validates the configuration and creates the manager.
func (b *CredentialManagerBuilder) Build() (CredentialManager, error) {
	if b.storage == nil || b.sealer == nil {
		return nil, fmt.Errorf("%w: storage and sealer are required", domain.ErrInvalidConfig)
	}

	cfg := b.opts.managerConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.opts.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.opts.now
	if now == nil {
		now = time.Now
	}

	var credentialCache *cache.Cache
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache, cache.WithClock(now))
		if err != nil {
			return nil, err
		}
		credentialCache = c
	}

	return &credentialManager{
		storage:   b.storage,
		sealer:    b.sealer,
		cache:     credentialCache,
		executor:  batch.NewExecutor(cfg.BatchConcurrency),
		validator: domain.NewValidator(cfg.RotationThreshold),
		config:    cfg,
		logger:    logger,
		now:       now,
	}, nil
}
