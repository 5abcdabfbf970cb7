package metrics

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCacheMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ObservesSnapshot", func(t *testing.T) {
		provider, err := NewProvider("credentials_cache")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(ctx))
		}()

		var hits atomic.Uint64
		hits.Store(3)
		registration, err := RegisterCacheMetrics(provider.MeterProvider(), "credentials_cache", func() (CacheSnapshot, bool) {
			return CacheSnapshot{Hits: hits.Load(), Misses: 2, Evictions: 1, Size: 4, MaxCapacity: 10}, true
		})
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, registration.Unregister())
		}()

		output := scrape(t, provider)
		assert.Regexp(t, `credentials_cache_cache_hits_total(\{[^}]*\})? 3`, output)
		assert.Regexp(t, `credentials_cache_cache_misses_total(\{[^}]*\})? 2`, output)
		assert.Regexp(t, `credentials_cache_cache_evictions_total(\{[^}]*\})? 1`, output)
		assert.Regexp(t, `credentials_cache_cache_entries(\{[^}]*\})? 4`, output)
		assert.Regexp(t, `credentials_cache_cache_capacity(\{[^}]*\})? 10`, output)

		hits.Store(8)
		assert.Regexp(t, `credentials_cache_cache_hits_total(\{[^}]*\})? 8`, scrape(t, provider))
	})

	t.Run("Success_CacheDisabled", func(t *testing.T) {
		provider, err := NewProvider("credentials_nocache")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(ctx))
		}()

		_, err = RegisterCacheMetrics(provider.MeterProvider(), "credentials_nocache", func() (CacheSnapshot, bool) {
			return CacheSnapshot{}, false
		})
		require.NoError(t, err)

		assert.NotContains(t, scrape(t, provider), "credentials_nocache_cache_entries ")
	})
}
