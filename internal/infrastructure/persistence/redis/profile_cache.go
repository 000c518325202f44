package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
)

// ProfileCache implements profile.Cache using the generic Redis Cache.
// A miss is reported as (nil, nil): the query layer treats it as
// "recompute from the ledger", not as a failure.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// cachedProfileDTO is the wire format for cached profiles.
type cachedProfileDTO struct {
	StudentID        string    `json:"student_id"`
	TotalPoints      int       `json:"total_points"`
	CurrentBelt      string    `json:"current_belt"`
	StreakDays       int       `json:"streak_days"`
	LastActivityDate time.Time `json:"last_activity_date"`
	ComputedAt       time.Time `json:"computed_at"`
}

// Get implements profile.Cache.
func (p *ProfileCache) Get(ctx context.Context, studentID string) (*profile.Profile, error) {
	var dto cachedProfileDTO
	err := p.cache.Get(ctx, ProfileKey(studentID), &dto)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	return &profile.Profile{
		StudentID:        dto.StudentID,
		TotalPoints:      dto.TotalPoints,
		CurrentBelt:      belt.Name(dto.CurrentBelt),
		StreakDays:       dto.StreakDays,
		LastActivityDate: dto.LastActivityDate,
		ComputedAt:       dto.ComputedAt,
	}, nil
}

// setIfGenScript stores the profile only while the invalidation counter
// still holds the value the reader sampled. A missing counter reads as 0.
// Checking and writing in one script keeps the comparison atomic against
// a concurrent INCR from the write path.
var setIfGenScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '0' end
if gen ~= ARGV[2] then return 0 end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// Generation implements profile.Cache.
func (p *ProfileCache) Generation(ctx context.Context, studentID string) (int64, error) {
	val, err := p.cache.client.Get(ctx, ProfileGenKey(studentID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: get generation for %q: %w", studentID, err)
	}

	gen, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: parse generation for %q: %w", studentID, err)
	}
	return gen, nil
}

// Set implements profile.Cache. The entry is dropped when the student's
// invalidation counter moved past generation.
func (p *ProfileCache) Set(ctx context.Context, prof *profile.Profile, ttl time.Duration, generation int64) error {
	if prof == nil {
		return nil
	}

	dto := cachedProfileDTO{
		StudentID:        prof.StudentID,
		TotalPoints:      prof.TotalPoints,
		CurrentBelt:      string(prof.CurrentBelt),
		StreakDays:       prof.StreakDays,
		LastActivityDate: prof.LastActivityDate,
		ComputedAt:       prof.ComputedAt,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("cache: marshal profile for %q: %w", prof.StudentID, err)
	}

	keys := []string{ProfileKey(prof.StudentID), ProfileGenKey(prof.StudentID)}
	err = setIfGenScript.Run(ctx, p.cache.client, keys,
		data, strconv.FormatInt(generation, 10), ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("cache: set profile for %q: %w", prof.StudentID, err)
	}
	return nil
}

// Invalidate implements profile.Cache.
// Called by the write path before it returns; a failed invalidation
// fails the write, because a stale profile would violate the
// read-your-writes guarantee. Bumping the counter first closes the door
// on fills computed from the pre-append ledger.
func (p *ProfileCache) Invalidate(ctx context.Context, studentID string) error {
	if err := p.cache.client.Incr(ctx, ProfileGenKey(studentID)).Err(); err != nil {
		return fmt.Errorf("cache: bump generation for %q: %w", studentID, err)
	}
	return p.cache.Delete(ctx, ProfileKey(studentID))
}
