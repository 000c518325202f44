package redis

import (
	"context"
	"errors"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
	"github.com/dojo-hub/dojo-progression-engine/pkg/circuitbreaker"
)

// BreakerCache wraps a profile.Cache with a circuit breaker. When Redis
// misbehaves the breaker opens and every operation degrades to a cache
// miss, so reads fall back to recomputing from the ledger instead of
// stalling on a dead connection.
type BreakerCache struct {
	inner   profile.Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerCache wraps inner with the given breaker. A nil breaker gets
// the default profile-cache configuration.
func NewBreakerCache(inner profile.Cache, breaker *circuitbreaker.CircuitBreaker) *BreakerCache {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(nil)
	}
	return &BreakerCache{inner: inner, breaker: breaker}
}

// Get returns the cached profile, or (nil, nil) on a miss. An open
// breaker is also reported as a miss.
func (c *BreakerCache) Get(ctx context.Context, studentID string) (*profile.Profile, error) {
	var result *profile.Profile

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		p, err := c.inner.Get(ctx, studentID)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, nil
		}
		return nil, err
	}

	return result, nil
}

// Generation returns the student's invalidation counter. Failures are
// surfaced, open breaker included: without a trustworthy counter the
// reader must skip its cache fill rather than risk storing a stale one.
func (c *BreakerCache) Generation(ctx context.Context, studentID string) (int64, error) {
	var gen int64

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		g, err := c.inner.Generation(ctx, studentID)
		if err != nil {
			return err
		}
		gen = g
		return nil
	})
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// Set stores the profile. An open breaker silently drops the write; the
// next read recomputes and repopulates once the breaker closes.
func (c *BreakerCache) Set(ctx context.Context, p *profile.Profile, ttl time.Duration, generation int64) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.inner.Set(ctx, p, ttl, generation)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil
	}
	return err
}

// Invalidate removes the student's profile from the cache. Unlike Get
// and Set, failures here are surfaced even when the breaker is open:
// a skipped invalidation could leave a stale profile visible for the
// remaining TTL, and the caller decides whether that is acceptable.
func (c *BreakerCache) Invalidate(ctx context.Context, studentID string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.inner.Invalidate(ctx, studentID)
	})
}

// State exposes the breaker state for health reporting.
func (c *BreakerCache) State() circuitbreaker.State {
	return c.breaker.State()
}
