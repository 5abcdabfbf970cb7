package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// CacheSnapshot carries the cache counters exported as observable instruments.
type CacheSnapshot struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Size        int
	MaxCapacity int
}

// CacheSnapshotFunc returns the current counters, or false when caching is disabled.
type CacheSnapshotFunc func() (CacheSnapshot, bool)

// RegisterCacheMetrics exports the counters returned by snapshot on every collection.
// Unregister the returned registration on shutdown.
func RegisterCacheMetrics(
	meterProvider metric.MeterProvider,
	namespace string,
	snapshot CacheSnapshotFunc,
) (metric.Registration, error) {
	meter := meterProvider.Meter(namespace)

	hits, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_hits_total", namespace),
		metric.WithDescription("Credential cache lookups served from the cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}
	misses, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_misses_total", namespace),
		metric.WithDescription("Credential cache lookups that went to storage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}
	evictions, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_cache_evictions_total", namespace),
		metric.WithDescription("Credential cache entries evicted for capacity"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache evictions counter: %w", err)
	}
	size, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_cache_entries", namespace),
		metric.WithDescription("Credential cache entries currently held"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache size gauge: %w", err)
	}
	capacity, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_cache_capacity", namespace),
		metric.WithDescription("Credential cache maximum entries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache capacity gauge: %w", err)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats, ok := snapshot()
		if !ok {
			return nil
		}
		o.ObserveInt64(hits, int64(stats.Hits))
		o.ObserveInt64(misses, int64(stats.Misses))
		o.ObserveInt64(evictions, int64(stats.Evictions))
		o.ObserveInt64(size, int64(stats.Size))
		o.ObserveInt64(capacity, int64(stats.MaxCapacity))
		return nil
	}, hits, misses, evictions, size, capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to register cache metrics callback: %w", err)
	}
	return registration, nil
}
