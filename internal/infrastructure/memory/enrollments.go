package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ranking"
)

// EnrollmentRepository is an in-memory ranking.EnrollmentRepository.
type EnrollmentRepository struct {
	mu sync.RWMutex
	// bySubject maps subjectID to studentID to enrolledAt.
	bySubject map[string]map[string]time.Time
}

// NewEnrollmentRepository creates an empty in-memory enrollment replica.
func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{bySubject: make(map[string]map[string]time.Time)}
}

// ListParticipants implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) ListParticipants(_ context.Context, subjectID string) ([]ranking.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := r.bySubject[subjectID]
	result := make([]ranking.Participant, 0, len(students))
	for studentID, enrolledAt := range students {
		result = append(result, ranking.Participant{
			StudentID:  studentID,
			EnrolledAt: enrolledAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EnrolledAt.Equal(result[j].EnrolledAt) {
			return result[i].EnrolledAt.Before(result[j].EnrolledAt)
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result, nil
}

// IsEnrolled implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) IsEnrolled(_ context.Context, subjectID, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bySubject[subjectID][studentID]
	return ok, nil
}

// Upsert implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) Upsert(_ context.Context, subjectID, studentID string, enrolledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students := r.bySubject[subjectID]
	if students == nil {
		students = make(map[string]time.Time)
		r.bySubject[subjectID] = students
	}
	students[studentID] = enrolledAt
	return nil
}
