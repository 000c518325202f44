// Package memory provides in-memory implementations of the domain
// repository contracts. Used for local development and tests; the
// production backend is PostgreSQL. The implementations honor the same
// contracts as the real ones, including duplicate detection, so the
// application layer cannot tell them apart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// LedgerRepository is an in-memory ledger.Repository.
type LedgerRepository struct {
	mu     sync.RWMutex
	events []*ledger.PointEvent
	// sourceRefs guards the (student, sourceRef) uniqueness the same way
	// the unique index does in PostgreSQL.
	sourceRefs map[string]map[ledger.SourceRef]bool
}

// NewLedgerRepository creates an empty in-memory ledger.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		sourceRefs: make(map[string]map[ledger.SourceRef]bool),
	}
}

// Append implements ledger.Repository.
func (r *LedgerRepository) Append(_ context.Context, event *ledger.PointEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := r.sourceRefs[event.StudentID]
	if refs == nil {
		refs = make(map[ledger.SourceRef]bool)
		r.sourceRefs[event.StudentID] = refs
	}
	if refs[event.SourceRef] {
		return shared.ErrDuplicateSource
	}

	refs[event.SourceRef] = true
	r.events = append(r.events, event.Clone())
	return nil
}

// GetByID implements ledger.Repository.
func (r *LedgerRepository) GetByID(_ context.Context, id string) (*ledger.PointEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.events {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, shared.ErrEventNotFound
}

// ListByStudent implements ledger.Repository.
func (r *LedgerRepository) ListByStudent(_ context.Context, studentID string, limit int) ([]*ledger.PointEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*ledger.PointEvent
	for _, e := range r.events {
		if e.StudentID == studentID {
			result = append(result, e.Clone())
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SumByStudent implements ledger.Repository.
func (r *LedgerRepository) SumByStudent(_ context.Context, studentID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, e := range r.events {
		if e.StudentID == studentID {
			total += int(e.Points)
		}
	}
	return total, nil
}

// SumBySubjectForStudents implements ledger.Repository.
func (r *LedgerRepository) SumBySubjectForStudents(_ context.Context, subjectID string, studentIDs []string, window ledger.Window) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}

	sums := make(map[string]int)
	for _, e := range r.events {
		if e.SubjectID != subjectID || !wanted[e.StudentID] {
			continue
		}
		if !window.IsZero() && !window.Contains(e.OccurredAt) {
			continue
		}
		sums[e.StudentID] += int(e.Points)
	}
	return sums, nil
}

// ListOccurredAt implements ledger.Repository.
func (r *LedgerRepository) ListOccurredAt(_ context.Context, studentID string) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []time.Time
	for _, e := range r.events {
		if e.StudentID == studentID {
			result = append(result, e.OccurredAt)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

// CountByReason implements ledger.Repository.
func (r *LedgerRepository) CountByReason(_ context.Context, studentID string) (map[ledger.Reason]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[ledger.Reason]int)
	for _, e := range r.events {
		if e.StudentID == studentID {
			counts[e.Reason]++
		}
	}
	return counts, nil
}

// HasSourceRef implements ledger.Repository.
func (r *LedgerRepository) HasSourceRef(_ context.Context, studentID string, sourceRef ledger.SourceRef) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sourceRefs[studentID][sourceRef], nil
}

// Len returns the number of stored events.
func (r *LedgerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
