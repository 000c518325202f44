package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements ranking.EnrollmentRepository for
// PostgreSQL. The table is a replica of the enrollment module's data,
// fed by the sync command; the engine itself only reads it.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// ListParticipants implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) ListParticipants(ctx context.Context, subjectID string) ([]ranking.Participant, error) {
	query := `
		SELECT student_id, enrolled_at
		FROM enrollments
		WHERE subject_id = $1
		ORDER BY enrolled_at, student_id
	`

	rows, err := r.conn.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []ranking.Participant
	for rows.Next() {
		var p ranking.Participant
		if err := rows.Scan(&p.StudentID, &p.EnrolledAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// IsEnrolled implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, subjectID, studentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE subject_id = $1 AND student_id = $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, subjectID, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

// Upsert implements ranking.EnrollmentRepository.
func (r *EnrollmentRepository) Upsert(ctx context.Context, subjectID, studentID string, enrolledAt time.Time) error {
	query := `
		INSERT INTO enrollments (subject_id, student_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id, student_id)
		DO UPDATE SET enrolled_at = EXCLUDED.enrolled_at
	`

	if _, err := r.conn.Exec(ctx, query, subjectID, studentID, enrolledAt); err != nil {
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}
	return nil
}
