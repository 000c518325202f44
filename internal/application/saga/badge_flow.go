// Package saga contains business processes that orchestrate
// multiple domain operations in a coordinated manner.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE FLOW SAGA
// Business process: evaluate the badge catalog for one student and persist
// any newly earned awards.
// Flow: Build Snapshot → Filter Already Awarded → Evaluate Predicates →
//
//	Insert Awards → Publish Events
//
// Awards are permanent. The flow only ever adds: a correction that drops a
// student below a threshold never takes a badge back, so the whole process
// is safe to re-run at any time from any trigger.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeFlowInput contains data needed to evaluate badges for a student.
type BadgeFlowInput struct {
	// StudentID - the student to evaluate the catalog for.
	StudentID string

	// TriggerOccurredAt - occurredAt of the ledger event that triggered
	// this run (zero when the run is not event-triggered). Used only to
	// detect whether the trigger moved the streak.
	TriggerOccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i BadgeFlowInput) Validate() error {
	if i.StudentID == "" {
		return shared.NewDomainError("saga", "badge_flow", shared.ErrValidation,
			"student_id is required")
	}
	return nil
}

// BadgeFlowResult contains the result of badge evaluation.
type BadgeFlowResult struct {
	// StudentID - the student that was evaluated.
	StudentID string

	// NewAwards - awards persisted by this run, in catalog order.
	NewAwards []*badge.Award

	// Snapshot - the ledger-derived state the predicates were evaluated
	// against.
	Snapshot badge.Snapshot

	// StreakDays - streak length after the triggering event.
	StreakDays int

	// EvaluatedAt - when the evaluation ran.
	EvaluatedAt time.Time
}

// HasNewAwards returns true if the run produced at least one award.
func (r *BadgeFlowResult) HasNewAwards() bool {
	return len(r.NewAwards) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA
// ══════════════════════════════════════════════════════════════════════════════

// BadgeFlowConfig contains configuration for the saga.
type BadgeFlowConfig struct {
	// ReportingLocation is the timezone used to bucket timestamps into
	// streak days.
	ReportingLocation *time.Location
}

// DefaultBadgeFlowConfig returns default configuration.
func DefaultBadgeFlowConfig() BadgeFlowConfig {
	return BadgeFlowConfig{
		ReportingLocation: time.FixedZone("Asia/Almaty", 5*60*60),
	}
}

// BadgeFlowSaga evaluates the badge catalog against a student's ledger.
type BadgeFlowSaga struct {
	ledgerRepo     ledger.Repository
	awardRepo      badge.AwardRepository
	catalog        badge.Catalog
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
	config         BadgeFlowConfig
}

// NewBadgeFlowSaga creates a new BadgeFlowSaga.
func NewBadgeFlowSaga(
	ledgerRepo ledger.Repository,
	awardRepo badge.AwardRepository,
	catalog badge.Catalog,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config BadgeFlowConfig,
) *BadgeFlowSaga {
	if config.ReportingLocation == nil {
		config = DefaultBadgeFlowConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BadgeFlowSaga{
		ledgerRepo:     ledgerRepo,
		awardRepo:      awardRepo,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Execute runs the badge flow for one student.
func (s *BadgeFlowSaga) Execute(ctx context.Context, input BadgeFlowInput) (*BadgeFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	snap, timestamps, err := s.buildSnapshot(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}

	result := &BadgeFlowResult{
		StudentID:   input.StudentID,
		Snapshot:    snap,
		StreakDays:  snap.StreakDays,
		NewAwards:   make([]*badge.Award, 0),
		EvaluatedAt: time.Now().UTC(),
	}

	awarded, err := s.loadAwardedSet(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}

	for _, b := range s.catalog {
		if awarded[b.ID] {
			continue
		}

		holds, err := badge.Holds(b.Unlock, snap)
		if err != nil {
			// Unknown predicate kind is a deploy-time configuration bug.
			// One broken badge must not block the rest of the catalog.
			s.logger.Error("badge predicate evaluation failed",
				slog.String("badge_id", b.ID),
				slog.String("student_id", input.StudentID),
				slog.Any("error", err))
			continue
		}
		if !holds {
			continue
		}

		award, err := s.grantAward(ctx, input, b)
		if err != nil {
			return nil, err
		}
		if award != nil {
			result.NewAwards = append(result.NewAwards, award)
		}
	}

	s.publishStreakUpdate(input, timestamps, snap.StreakDays)

	if result.HasNewAwards() {
		s.logger.Info("badges awarded",
			slog.String("student_id", input.StudentID),
			slog.Int("count", len(result.NewAwards)))
	}

	return result, nil
}

// buildSnapshot derives the predicate input from the ledger. Returns the
// raw timestamps as well so the streak transition check can reuse them.
func (s *BadgeFlowSaga) buildSnapshot(ctx context.Context, studentID string) (badge.Snapshot, []time.Time, error) {
	total, err := s.ledgerRepo.SumByStudent(ctx, studentID)
	if err != nil {
		return badge.Snapshot{}, nil, fmt.Errorf("badge_flow: failed to sum points: %w", err)
	}

	timestamps, err := s.ledgerRepo.ListOccurredAt(ctx, studentID)
	if err != nil {
		return badge.Snapshot{}, nil, fmt.Errorf("badge_flow: failed to list timestamps: %w", err)
	}

	counts, err := s.ledgerRepo.CountByReason(ctx, studentID)
	if err != nil {
		return badge.Snapshot{}, nil, fmt.Errorf("badge_flow: failed to count by reason: %w", err)
	}

	countByReason := make(map[string]int, len(counts))
	for reason, count := range counts {
		countByReason[string(reason)] = count
	}

	current := streak.FromTimestamps(timestamps, s.config.ReportingLocation)

	return badge.Snapshot{
		StudentID:          studentID,
		TotalPoints:        total,
		StreakDays:         current.Days,
		EventCountByReason: countByReason,
	}, timestamps, nil
}

// loadAwardedSet returns the ids of badges the student already holds.
func (s *BadgeFlowSaga) loadAwardedSet(ctx context.Context, studentID string) (map[string]bool, error) {
	awards, err := s.awardRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("badge_flow: failed to list awards: %w", err)
	}

	set := make(map[string]bool, len(awards))
	for _, a := range awards {
		set[a.BadgeID] = true
	}
	return set, nil
}

// grantAward persists one award. A concurrent run may have inserted the
// same (student, badge) pair first; the unique index turns that into
// shared.ErrBadgeAlreadyAwarded, which this run treats as "not mine".
func (s *BadgeFlowSaga) grantAward(ctx context.Context, input BadgeFlowInput, b badge.Badge) (*badge.Award, error) {
	award, err := badge.NewAward(uuid.NewString(), input.StudentID, b.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("badge_flow: failed to build award: %w", err)
	}

	if err := s.awardRepo.Insert(ctx, award); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("badge_flow: failed to insert award: %w", err)
	}

	if s.eventPublisher != nil {
		ev := shared.NewBadgeAwardedEvent(input.StudentID, b.ID, award.AwardedAt)
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(input.CorrelationID)
		_ = s.eventPublisher.Publish(ev)
	}

	return award, nil
}

// publishStreakUpdate emits StreakUpdatedEvent when the triggering event
// changed the streak length. Recomputes the streak without the trigger's
// timestamp and compares.
func (s *BadgeFlowSaga) publishStreakUpdate(input BadgeFlowInput, timestamps []time.Time, currentDays int) {
	if s.eventPublisher == nil || input.TriggerOccurredAt.IsZero() {
		return
	}

	without := make([]time.Time, 0, len(timestamps))
	removed := false
	for _, ts := range timestamps {
		if !removed && ts.Equal(input.TriggerOccurredAt) {
			removed = true
			continue
		}
		without = append(without, ts)
	}
	if !removed {
		return
	}

	prior := streak.FromTimestamps(without, s.config.ReportingLocation)
	if prior.Days == currentDays {
		return
	}

	ev := shared.NewStreakUpdatedEvent(input.StudentID, currentDays, currentDays < prior.Days)
	ev.BaseEvent = ev.BaseEvent.WithCorrelationID(input.CorrelationID)
	_ = s.eventPublisher.Publish(ev)
}
