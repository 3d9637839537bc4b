// Package hybrid implements the gateway's two-tier content cache: a
// bounded in-memory LRU tier backed by hashicorp/golang-lru/v2 for hot
// reads, and an on-disk tier backed by internal/kv (bbolt) for
// everything that has been evicted from memory but is still within its
// TTL. The disk tier has no size bound: an entry leaves it only when a
// read finds it expired or Invalidate removes it. A single-flight dedup layer collapses concurrent misses for the
// same key into one upstream fetch, and negative results are cached
// just like positive ones (internal/cacheitem.Item's present flag).
//
// The single-flight map-of-in-flight-calls pattern is grounded on the
// teacher's cache/model.go sync.Map-backed item store: here it is a
// plain map guarded by a mutex instead, because each entry additionally
// carries a WaitGroup released exactly once, which sync.Map's API
// cannot express as cleanly as an explicit lock.
package hybrid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/traktion/anttp/internal/cacheitem"
	"github.com/traktion/anttp/internal/kv"
	"github.com/traktion/anttp/internal/logger"
	"github.com/traktion/anttp/internal/metrics"
)

// Fetcher retrieves the value for key from the upstream source of
// truth (the network, through a command or a caching client) when
// neither cache tier has it.
type Fetcher[V any] func(ctx context.Context) (V, bool, error)

// envelope is the on-disk (CBOR-encoded) representation of a cached
// value. Present distinguishes a real value from a cached negative
// lookup; StoredAtUnixNano and TTLNanos let a cold-started process
// recompute staleness instead of trusting a disk-tier clock.
type envelope[V any] struct {
	Present          bool          `cbor:"present"`
	Value            V             `cbor:"value"`
	StoredAtUnixNano int64         `cbor:"stored_at"`
	TTLNanos         int64         `cbor:"ttl"`
}

type call[V any] struct {
	wg    sync.WaitGroup
	value V
	found bool
	err   error
}

// Cache is the hybrid two-tier cache for a single record kind. Keys
// are the caller's responsibility to namespace (internal/addr.Key
// does this for content-addressed records).
type Cache[V any] struct {
	memory  *lru.Cache[string, *cacheitem.Item[V]]
	disk    *kv.BoltDriver
	ttl     time.Duration
	negTTL  time.Duration
	log     *logger.Logger
	kind    string
	metrics *metrics.Registry

	flightMu sync.Mutex
	inFlight map[string]*call[V]
}

// WithMetrics attaches a metrics registry to an already-built cache,
// so construction (New, called once per record kind from cmd/anttp)
// doesn't need to thread an optional dependency through every call
// site that doesn't care about it. Returns c for chaining.
func (c *Cache[V]) WithMetrics(m *metrics.Registry) *Cache[V] {
	c.metrics = m
	return c
}

// New builds a hybrid cache with memorySlots entries in the LRU tier,
// backed by an already-open disk driver (nil disables the disk tier,
// useful for tests and for record kinds too small to warrant one).
func New[V any](memorySlots int, disk *kv.BoltDriver, ttl, negativeTTL time.Duration, name string) (*Cache[V], error) {
	m, err := lru.New[string, *cacheitem.Item[V]](memorySlots)
	if err != nil {
		return nil, fmt.Errorf("hybrid: lru init: %w", err)
	}

	return &Cache[V]{
		memory:   m,
		disk:     disk,
		ttl:      ttl,
		negTTL:   negativeTTL,
		log:      logger.Named("cache." + name),
		kind:     name,
		inFlight: make(map[string]*call[V]),
	}, nil
}

// Get returns the cached value for key, or runs fetch exactly once
// across any number of concurrent callers sharing the same key
// (single-flight), caching the result - positive or negative - on the
// way out. A memory hit on an entry past half its TTL is returned as-is
// and refreshed through fetch in the background.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch Fetcher[V]) (V, bool, error) {
	if v, present, ok := c.loadMemory(key); ok {
		c.recordHit("memory")
		if item, found := c.memory.Peek(key); found && item.Stale() {
			go func() {
				if _, _, err := c.singleFlight(context.Background(), key, fetch); err != nil {
					c.log.WithError(err).Warnf("background refresh failed for key %s", key)
				}
			}()
		}
		return v, present, nil
	}

	if c.disk != nil {
		if v, present, ok := c.loadDisk(key); ok {
			c.storeMemory(key, v, present)
			c.recordHit("disk")
			return v, present, nil
		}
	}

	c.recordMiss()
	return c.singleFlight(ctx, key, fetch)
}

func (c *Cache[V]) recordHit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(c.kind, tier).Inc()
	}
}

func (c *Cache[V]) recordMiss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(c.kind).Inc()
	}
}

func (c *Cache[V]) loadMemory(key string) (V, bool, bool) {
	item, ok := c.memory.Get(key)
	if !ok {
		var zero V
		return zero, false, false
	}

	val, present, ok := item.Load()
	if !ok {
		c.memory.Remove(key)
		var zero V
		return zero, false, false
	}

	if item.Stale() {
		// stale-while-revalidate: report the value now; Get starts
		// the background refresh.
		c.log.Debugf("stale read for key %s", key)
	}

	return val, present, true
}

func (c *Cache[V]) storeMemory(key string, val V, present bool) {
	var item *cacheitem.Item[V]
	if present {
		item = cacheitem.NewPositive(val, c.ttl)
	} else {
		item = cacheitem.NewNegative[V](c.negTTL)
	}
	c.memory.Add(key, item)
}

func (c *Cache[V]) loadDisk(key string) (V, bool, bool) {
	var raw []byte
	if err := c.disk.Get(key, &raw); err != nil || raw == nil {
		var zero V
		return zero, false, false
	}

	var env envelope[V]
	if err := cbor.Unmarshal(raw, &env); err != nil {
		var zero V
		return zero, false, false
	}

	storedAt := time.Unix(0, env.StoredAtUnixNano)
	ttl := time.Duration(env.TTLNanos)
	if ttl > 0 && time.Now().After(storedAt.Add(ttl)) {
		_ = c.disk.Del(key)
		var zero V
		return zero, false, false
	}

	return env.Value, env.Present, true
}

func (c *Cache[V]) storeDisk(key string, val V, present bool, ttl time.Duration) {
	if c.disk == nil {
		return
	}

	env := envelope[V]{Present: present, Value: val, StoredAtUnixNano: time.Now().UnixNano(), TTLNanos: int64(ttl)}
	raw, err := cbor.Marshal(env)
	if err != nil {
		c.log.WithError(err).Warnf("cbor encode failed for key %s", key)
		return
	}

	if err := c.disk.Set(key, raw); err != nil {
		c.log.WithError(err).Warnf("disk write failed for key %s", key)
	}
}

func (c *Cache[V]) singleFlight(ctx context.Context, key string, fetch Fetcher[V]) (V, bool, error) {
	c.flightMu.Lock()
	if existing, ok := c.inFlight[key]; ok {
		c.flightMu.Unlock()
		existing.wg.Wait()
		return existing.value, existing.found, existing.err
	}

	cl := &call[V]{}
	cl.wg.Add(1)
	c.inFlight[key] = cl
	c.flightMu.Unlock()

	cl.value, cl.found, cl.err = fetch(ctx)

	c.flightMu.Lock()
	delete(c.inFlight, key)
	c.flightMu.Unlock()
	cl.wg.Done()

	if cl.err == nil {
		ttl := c.ttl
		if !cl.found {
			ttl = c.negTTL
		}
		c.storeMemory(key, cl.value, cl.found)
		c.storeDisk(key, cl.value, cl.found, ttl)
	}

	return cl.value, cl.found, cl.err
}

// Tier names which side of the hybrid cache a locally-originated write
// lands in.
type Tier int

const (
	// TierMemory stages val in the in-memory LRU only, for the
	// cheapest and shortest-lived staged write (lost on restart, first
	// to be evicted under memory pressure).
	TierMemory Tier = iota
	// TierDisk stages val on the bbolt-backed disk tier only, durable
	// across a restart but never promoted into memory until a reader
	// hits it through the normal Get path.
	TierDisk
)

// Set stages val under key into tier, with the given ttl (ttl<=0 means
// it never expires on its own). Used for a write originated locally -
// a binary upload staged ahead of, or entirely instead of, a network
// round trip - as opposed to a value learned from a Fetcher, which
// always lands in both tiers via singleFlight.
func (c *Cache[V]) Set(tier Tier, key string, val V, ttl time.Duration) {
	switch tier {
	case TierMemory:
		c.memory.Add(key, cacheitem.NewPositive(val, ttl))
	case TierDisk:
		c.storeDisk(key, val, true, ttl)
	}
}

// Invalidate removes key from both tiers, used after a successful
// PutMutable so a stale negative or prior version can't linger.
func (c *Cache[V]) Invalidate(key string) {
	c.memory.Remove(key)
	if c.disk != nil {
		_ = c.disk.Del(key)
	}
}

// Len reports the current in-memory entry count, used by metrics.
func (c *Cache[V]) Len() int {
	return c.memory.Len()
}
