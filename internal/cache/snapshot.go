package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/circuitbreaker"
	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

const snapshotKey = "pricing:rules:snapshot"

// CachedRepository serves rule snapshots from Redis and falls back to the wrapped store.
// Local writes invalidate the cached copy; writes from other instances become visible
// once the TTL expires.
type CachedRepository struct {
	store   pricing.RuleStore
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewCachedRepository wraps store with a snapshot cache.
func NewCachedRepository(store pricing.RuleStore, cache *Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		store: store,
		cache: cache,
		ttl:   ttl,
		breaker: circuitbreaker.New("redis-snapshot-cache", circuitbreaker.Config{
			MaxFailures:      3,
			Timeout:          10 * time.Second,
			SuccessThreshold: 1,
		}, log.L(context.Background())),
	}
}

// WithBreaker replaces the circuit breaker guarding cache reads and fills.
func (r *CachedRepository) WithBreaker(cb *circuitbreaker.CircuitBreaker) *CachedRepository {
	r.breaker = cb
	return r
}

// Snapshot returns the cached snapshot, loading and caching it on a miss.
// Redis failures degrade to reading the store directly; while the breaker is
// open Redis is skipped entirely.
func (r *CachedRepository) Snapshot(ctx context.Context) (*pricing.Snapshot, error) {
	var snap pricing.Snapshot
	miss := false
	err := r.breaker.Execute(ctx, func() error {
		err := r.cache.Get(ctx, snapshotKey, &snap)
		if errors.Is(err, ErrMiss) {
			miss = true
			return nil
		}
		return err
	})
	if err == nil && !miss {
		metrics.RecordSnapshotCache(true)
		return &snap, nil
	}
	metrics.RecordSnapshotCache(false)
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Warn(ctx, "Snapshot cache read failed", zap.Error(err))
	}

	fresh, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	err = r.breaker.Execute(ctx, func() error {
		return r.cache.Set(ctx, snapshotKey, fresh, r.ttl)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Warn(ctx, "Snapshot cache write failed",
			zap.Int64("snapshot_version", fresh.Version),
			zap.Error(err))
	}
	return fresh, nil
}

// Upsert writes through to the store and drops the cached snapshot.
func (r *CachedRepository) Upsert(ctx context.Context, rule pricing.PricingRule) (pricing.PricingRule, error) {
	saved, err := r.store.Upsert(ctx, rule)
	if err != nil {
		return pricing.PricingRule{}, err
	}
	r.invalidate(ctx)
	return saved, nil
}

// Delete removes the rule from the store and drops the cached snapshot.
func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// invalidate always goes to Redis, even with the breaker open, so a recovered
// cache never serves a snapshot older than the last local write.
func (r *CachedRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, snapshotKey); err != nil {
		log.Warn(ctx, "Snapshot cache invalidation failed", zap.Error(err))
	}
}
