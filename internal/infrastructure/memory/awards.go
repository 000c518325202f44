package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// AwardRepository is an in-memory badge.AwardRepository.
type AwardRepository struct {
	mu     sync.RWMutex
	awards []*badge.Award
	byPair map[string]bool // studentID + "\x00" + badgeID
}

// NewAwardRepository creates an empty in-memory award store.
func NewAwardRepository() *AwardRepository {
	return &AwardRepository{byPair: make(map[string]bool)}
}

func pairKey(studentID, badgeID string) string {
	return studentID + "\x00" + badgeID
}

// Insert implements badge.AwardRepository.
func (r *AwardRepository) Insert(_ context.Context, award *badge.Award) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(award.StudentID, award.BadgeID)
	if r.byPair[key] {
		return shared.ErrBadgeAlreadyAwarded
	}

	r.byPair[key] = true
	copied := *award
	r.awards = append(r.awards, &copied)
	return nil
}

// ListByStudent implements badge.AwardRepository.
func (r *AwardRepository) ListByStudent(_ context.Context, studentID string) ([]*badge.Award, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*badge.Award
	for _, a := range r.awards {
		if a.StudentID == studentID {
			copied := *a
			result = append(result, &copied)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AwardedAt.Before(result[j].AwardedAt)
	})
	return result, nil
}

// IsAwarded implements badge.AwardRepository.
func (r *AwardRepository) IsAwarded(_ context.Context, studentID, badgeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byPair[pairKey(studentID, badgeID)], nil
}
