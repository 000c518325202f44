package command

import (
	"context"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ranking"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC ENROLLMENT COMMAND
// Mirrors subject membership from the enrollment module into the engine's
// read replica. The engine never decides who is enrolled; it only needs the
// (student, subject, enrolledAt) triples to build deterministic rankings.
// ══════════════════════════════════════════════════════════════════════════════

// SyncEnrollmentCommand upserts one enrollment record.
type SyncEnrollmentCommand struct {
	// SubjectID is the subject the student is enrolled in.
	SubjectID string

	// StudentID is the internal ID of the student.
	StudentID string

	// EnrolledAt is when the enrollment happened. This drives the first
	// tie-break in rankings, so the enrollment module's timestamp is
	// stored verbatim.
	EnrolledAt time.Time
}

// Validate validates the command.
func (c SyncEnrollmentCommand) Validate() error {
	if c.SubjectID == "" {
		return shared.NewDomainError("command", "sync_enrollment", shared.ErrValidation, "subject_id is required")
	}
	if c.StudentID == "" {
		return shared.NewDomainError("command", "sync_enrollment", shared.ErrValidation, "student_id is required")
	}
	if c.EnrolledAt.IsZero() {
		return shared.NewDomainError("command", "sync_enrollment", shared.ErrValidation, "enrolled_at is required")
	}
	return nil
}

// SyncEnrollmentHandler handles the SyncEnrollmentCommand.
type SyncEnrollmentHandler struct {
	enrollmentRepo ranking.EnrollmentRepository
}

// NewSyncEnrollmentHandler creates a new SyncEnrollmentHandler.
func NewSyncEnrollmentHandler(enrollmentRepo ranking.EnrollmentRepository) *SyncEnrollmentHandler {
	return &SyncEnrollmentHandler{enrollmentRepo: enrollmentRepo}
}

// Handle executes the sync enrollment command. Upserts are idempotent:
// replaying the enrollment feed is always safe.
func (h *SyncEnrollmentHandler) Handle(ctx context.Context, cmd SyncEnrollmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return h.enrollmentRepo.Upsert(ctx, cmd.SubjectID, cmd.StudentID, cmd.EnrolledAt.UTC())
}
