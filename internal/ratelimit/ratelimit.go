package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/metrics"
)

// Operation kinds with their own bucket.
const (
	KindReservation = "reservation"
	KindEmail       = "email"
)

// Limit is the static bucket shape for one kind: TokensPerInterval tokens,
// refilled evenly over Interval.
type Limit struct {
	TokensPerInterval int
	Interval          time.Duration
}

// DefaultLimits mirrors the per-minute quotas of the reservation and mail paths.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		KindReservation: {TokensPerInterval: 10, Interval: time.Minute},
		KindEmail:       {TokensPerInterval: 100, Interval: time.Minute},
	}
}

// Registry owns one token bucket per operation kind. Buckets are process-local;
// all callers of a kind share the bucket.
type Registry struct {
	mu       sync.Mutex
	limits   map[string]Limit
	fallback Limit
	buckets  map[string]*rate.Limiter
	recorder *metrics.Recorder
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry builds a registry; kinds missing from limits use the reservation limit.
func NewRegistry(limits map[string]Limit, recorder *metrics.Recorder, opts ...Option) *Registry {
	if limits == nil {
		limits = DefaultLimits()
	}
	fallback, ok := limits[KindReservation]
	if !ok {
		fallback = DefaultLimits()[KindReservation]
	}
	r := &Registry{
		limits:   limits,
		fallback: fallback,
		buckets:  make(map[string]*rate.Limiter),
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check consumes one token for kind or returns a resource-exhausted error.
func (r *Registry) Check(ctx context.Context, kind string) error {
	if r.bucket(kind).AllowN(r.now(), 1) {
		return nil
	}
	if r.recorder != nil {
		r.recorder.Record(ctx, metrics.RateLimitExceeded, 1, map[string]string{"type": kind})
	}
	return apperrors.ErrRateLimited
}

func (r *Registry) bucket(kind string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buckets[kind]; ok {
		return b
	}
	limit, ok := r.limits[kind]
	if !ok {
		limit = r.fallback
	}
	b := newBucket(limit)
	r.buckets[kind] = b
	return b
}

func newBucket(l Limit) *rate.Limiter {
	tokens := l.TokensPerInterval
	if tokens <= 0 {
		tokens = 1
	}
	interval := l.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return rate.NewLimiter(rate.Every(interval/time.Duration(tokens)), tokens)
}
