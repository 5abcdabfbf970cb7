// Package cache provides the TTL and capacity bounded read-through cache used by
// the credential manager.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/allisson/credentials/internal/credentials/domain"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Size        int
	MaxCapacity int
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Utilization returns size / max capacity.
func (s Stats) Utilization() float64 {
	if s.MaxCapacity <= 0 {
		return 0
	}
	return float64(s.Size) / float64(s.MaxCapacity)
}

// IsFull reports whether the next insert of a new id will evict.
func (s Stats) IsFull() bool {
	return s.MaxCapacity > 0 && s.Size >= s.MaxCapacity
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for TTL and recency.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

type entry struct {
	credential *domain.Credential
	insertedAt time.Time
	lastAccess time.Time
	hits       uint64
}

// Cache maps credential ids to decrypted credentials.
//
// Entries expire lazily once their TTL has elapsed since insertion, regardless of
// how recently they were read. When the cache is at capacity an insert of a new
// id evicts one entry chosen by the configured strategy. Values are copied on the
// way in and on the way out, and every dropped entry has its secret zeroed.
type Cache struct {
	mu       sync.Mutex
	entries  map[domain.CredentialID]*entry
	ttl      time.Duration
	maxSize  int
	strategy domain.EvictionStrategy
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64

	// epoch advances on every invalidation. stamps records the epoch at which
	// each id was last invalidated; inserts read at an earlier epoch for that id
	// are refused. floor refuses every insert read before it.
	epoch  uint64
	floor  uint64
	stamps map[domain.CredentialID]uint64
}

// New creates a cache from cfg. TTL and MaxSize must be positive.
func New(cfg domain.CacheConfig, opts ...Option) (*Cache, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: cache ttl must be positive", domain.ErrInvalidConfig)
	}
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: cache max size must be positive", domain.ErrInvalidConfig)
	}
	strategy, err := domain.ParseEvictionStrategy(string(cfg.Eviction))
	if err != nil {
		return nil, err
	}

	c := &Cache{
		entries:  make(map[domain.CredentialID]*entry, cfg.MaxSize),
		stamps:   make(map[domain.CredentialID]uint64),
		ttl:      cfg.TTL,
		maxSize:  cfg.MaxSize,
		strategy: strategy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a copy of the cached credential. It counts a hit or a miss;
// an expired entry is removed and counted as a miss.
func (c *Cache) Get(id domain.CredentialID) (*domain.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		c.misses++
		return nil, false
	}

	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(id, e)
		c.misses++
		return nil, false
	}

	e.lastAccess = now
	e.hits++
	c.hits++
	return e.credential.Clone(), true
}

// Insert stores a copy of credential, replacing any entry for id.
func (c *Cache) Insert(id domain.CredentialID, credential *domain.Credential) {
	if credential == nil {
		return
	}
	value := credential.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(id, value)
}

// Epoch returns a counter that advances on every invalidation. Readers take it
// before loading from storage and pass it to InsertIfEpoch.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// InsertIfEpoch inserts only when id was not invalidated since epoch was read,
// so a slow load cannot repopulate a value that a concurrent write replaced.
// Invalidations of other ids do not affect it.
func (c *Cache) InsertIfEpoch(epoch uint64, id domain.CredentialID, credential *domain.Credential) bool {
	if credential == nil {
		return false
	}
	value := credential.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch < c.floor || c.stamps[id] > epoch {
		value.Zero()
		return false
	}
	c.insertLocked(id, value)
	return true
}

// Invalidate drops the entry for id if present.
func (c *Cache) Invalidate(id domain.CredentialID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.stamps[id] = c.epoch
	// Bound the stamp map by folding it into the floor. This refuses in-flight
	// inserts for every id once, which only costs a later miss.
	if len(c.stamps) > c.maxSize {
		clear(c.stamps)
		c.floor = c.epoch
	}
	if e, ok := c.entries[id]; ok {
		c.removeLocked(id, e)
	}
}

// InvalidateAll drops every entry. Counters are kept.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	clear(c.stamps)
	c.floor = c.epoch
	for id, e := range c.entries {
		c.removeLocked(id, e)
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Size:        len(c.entries),
		MaxCapacity: c.maxSize,
	}
}

// TTL returns the configured time to live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) insertLocked(id domain.CredentialID, value *domain.Credential) {
	now := c.now()
	if old, ok := c.entries[id]; ok {
		old.credential.Zero()
	} else if len(c.entries) >= c.maxSize {
		c.purgeExpiredLocked(now)
		if len(c.entries) >= c.maxSize {
			c.evictLocked()
		}
	}

	c.entries[id] = &entry{
		credential: value,
		insertedAt: now,
		lastAccess: now,
	}
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.insertedAt) >= c.ttl
}

func (c *Cache) removeLocked(id domain.CredentialID, e *entry) {
	e.credential.Zero()
	delete(c.entries, id)
}

func (c *Cache) purgeExpiredLocked(now time.Time) {
	for id, e := range c.entries {
		if c.expired(e, now) {
			c.removeLocked(id, e)
		}
	}
}

// evictLocked removes one entry. A linear scan keeps the structure a plain map;
// capacities are expected to be in the thousands.
func (c *Cache) evictLocked() {
	var (
		victimID domain.CredentialID
		victim   *entry
	)
	for id, e := range c.entries {
		if victim == nil || c.less(e, victim) {
			victimID, victim = id, e
		}
	}
	if victim != nil {
		c.removeLocked(victimID, victim)
		c.evictions++
	}
}

// less reports whether a should be evicted before b.
func (c *Cache) less(a, b *entry) bool {
	if c.strategy == domain.EvictionLFU && a.hits != b.hits {
		return a.hits < b.hits
	}
	if !a.lastAccess.Equal(b.lastAccess) {
		return a.lastAccess.Before(b.lastAccess)
	}
	return a.insertedAt.Before(b.insertedAt)
}
