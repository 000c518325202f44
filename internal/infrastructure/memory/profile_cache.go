package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
)

// ProfileCache is an in-memory profile.Cache with TTL expiry.
type ProfileCache struct {
	mu      sync.RWMutex
	entries map[string]cachedProfile
	gens    map[string]int64
}

type cachedProfile struct {
	profile   *profile.Profile
	expiresAt time.Time
}

// NewProfileCache creates an empty in-memory profile cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		entries: make(map[string]cachedProfile),
		gens:    make(map[string]int64),
	}
}

// Get implements profile.Cache.
func (c *ProfileCache) Get(_ context.Context, studentID string) (*profile.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[studentID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.profile.Clone(), nil
}

// Generation implements profile.Cache.
func (c *ProfileCache) Generation(_ context.Context, studentID string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gens[studentID], nil
}

// Set implements profile.Cache. The entry is dropped when the student's
// invalidation counter moved past generation.
func (c *ProfileCache) Set(_ context.Context, p *profile.Profile, ttl time.Duration, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[p.StudentID] != generation {
		return nil
	}
	c.entries[p.StudentID] = cachedProfile{
		profile:   p.Clone(),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate implements profile.Cache.
func (c *ProfileCache) Invalidate(_ context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, studentID)
	c.gens[studentID]++
	return nil
}
