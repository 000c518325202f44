// Package badge содержит каталог бейджей Dojo Hub и логику их выдачи.
package badge

import (
	"context"
)

// AwardRepository определяет контракт хранения выданных бейджей.
// Реализация находится в infrastructure слое (PostgreSQL).
type AwardRepository interface {
	// Insert атомарно сохраняет выдачу бейджа.
	// Возвращает shared.ErrBadgeAlreadyAwarded при нарушении
	// уникальности (student_id, badge_id): конкурентная повторная
	// выдача - ожидаемый no-op, а не сбой.
	Insert(ctx context.Context, award *Award) error

	// ListByStudent возвращает все выдачи студента,
	// отсортированные по времени выдачи (старые первыми).
	ListByStudent(ctx context.Context, studentID string) ([]*Award, error)

	// IsAwarded проверяет, выдан ли бейдж студенту.
	IsAwarded(ctx context.Context, studentID, badgeID string) (bool, error)
}
