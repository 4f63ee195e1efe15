// Package cache memoizes idempotent reads for a bounded time.
//
// Values are stored JSON-encoded so the in-process LRU and the shared Valkey
// backend behave the same. Writers evict the keys they touched with Invalidate;
// InvalidateAll backs the admin cache flush.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"ticketline/internal/metrics"
)

// DefaultTTL is used when GetCached is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// DefaultLoadTimeout bounds a shared loader call.
const DefaultLoadTimeout = 10 * time.Second

// Entry is a stored value and its insertion time.
type Entry struct {
	Value     []byte    `json:"v"`
	Timestamp time.Time `json:"ts"`
}

// Backend stores entries. ttl is a hint for backends that expire keys themselves.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// Cache is the read-through layer in front of a Backend.
type Cache struct {
	backend     Backend
	recorder    *metrics.Recorder
	group       singleflight.Group
	now         func() time.Time
	defaultTTL  time.Duration
	loadTimeout time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

func New(backend Backend, recorder *metrics.Recorder, opts ...Option) *Cache {
	c := &Cache{
		backend:     backend,
		recorder:    recorder,
		now:         time.Now,
		defaultTTL:  DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EventKey, UserKey and ReservationKey build the keys used across the service.
func EventKey(eventID string) string             { return "event_" + eventID }
func UserKey(userID string) string               { return "user_" + userID }
func ReservationKey(reservationID string) string { return "reservation_" + reservationID }

// GetCached returns the value under key if it is younger than ttl, otherwise
// it calls loader, stores the result and returns it. Loader errors are not cached.
// Concurrent misses on one key share a single loader call, which runs
// detached from the caller's cancellation so one caller giving up does not
// fail the others.
func GetCached[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	entry, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed, falling back to loader", "key", key, "error", err)
	}
	if ok && c.now().Sub(entry.Timestamp) < ttl {
		var v T
		if err := json.Unmarshal(entry.Value, &v); err == nil {
			c.record(ctx, metrics.CacheHit, key)
			return v, nil
		}
		slog.Warn("Dropping undecodable cache entry", "key", key)
	}

	c.record(ctx, metrics.CacheMiss, key)
	res, err, _ := c.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}
		if err := c.backend.Set(loadCtx, key, Entry{Value: raw, Timestamp: c.now()}, ttl); err != nil {
			slog.Warn("Cache store failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Invalidate evicts exactly the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		c.group.Forget(k)
	}
	return c.backend.Delete(ctx, keys...)
}

// InvalidateAll clears every entry.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.backend.Clear(ctx)
}

func (c *Cache) record(ctx context.Context, name, key string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, name, 1, map[string]string{"key": key})
}
