package postgres

import (
	"context"
	"fmt"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeAwardRepository implements badge.AwardRepository for PostgreSQL.
// The UNIQUE (student_id, badge_id) constraint makes concurrent award
// attempts converge on exactly one row.
type BadgeAwardRepository struct {
	conn *Connection
}

// NewBadgeAwardRepository creates a new BadgeAwardRepository.
func NewBadgeAwardRepository(conn *Connection) *BadgeAwardRepository {
	return &BadgeAwardRepository{conn: conn}
}

// Insert implements badge.AwardRepository.
func (r *BadgeAwardRepository) Insert(ctx context.Context, award *badge.Award) error {
	query := `
		INSERT INTO badge_awards (id, student_id, badge_id, awarded_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query, award.ID, award.StudentID, award.BadgeID, award.AwardedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrBadgeAlreadyAwarded
		}
		return fmt.Errorf("failed to insert badge award: %w", err)
	}

	return nil
}

// ListByStudent implements badge.AwardRepository.
func (r *BadgeAwardRepository) ListByStudent(ctx context.Context, studentID string) ([]*badge.Award, error) {
	query := `
		SELECT id, student_id, badge_id, awarded_at
		FROM badge_awards
		WHERE student_id = $1
		ORDER BY awarded_at
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []*badge.Award
	for rows.Next() {
		var award badge.Award
		if err := rows.Scan(&award.ID, &award.StudentID, &award.BadgeID, &award.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge award: %w", err)
		}
		awards = append(awards, &award)
	}

	return awards, rows.Err()
}

// IsAwarded implements badge.AwardRepository.
func (r *BadgeAwardRepository) IsAwarded(ctx context.Context, studentID, badgeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM badge_awards
			WHERE student_id = $1 AND badge_id = $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, studentID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge award: %w", err)
	}
	return exists, nil
}
