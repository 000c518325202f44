// Package badge содержит каталог бейджей Dojo Hub и логику их выдачи.
package badge

import (
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// Award - факт выдачи бейджа студенту.
// Инвариант уникальности: не более одной записи на пару
// (StudentID, BadgeID) за всю историю. Запись никогда не удаляется.
type Award struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// BadgeID - идентификатор бейджа из каталога.
	BadgeID string

	// AwardedAt - момент выдачи.
	AwardedAt time.Time
}

// NewAward создаёт новую запись выдачи с валидацией.
func NewAward(id, studentID, badgeID string, awardedAt time.Time) (*Award, error) {
	if id == "" {
		return nil, shared.WrapError("badge", "Award", shared.ErrEmptyValue, "award id is required", nil)
	}
	if studentID == "" {
		return nil, shared.WrapError("badge", "Award", shared.ErrEmptyValue, "student id is required", nil)
	}
	if badgeID == "" {
		return nil, shared.WrapError("badge", "Award", shared.ErrEmptyValue, "badge id is required", nil)
	}
	if awardedAt.IsZero() {
		awardedAt = time.Now().UTC()
	}

	return &Award{
		ID:        id,
		StudentID: studentID,
		BadgeID:   badgeID,
		AwardedAt: awardedAt,
	}, nil
}

// String возвращает строковое представление для логирования.
func (a *Award) String() string {
	return fmt.Sprintf("Award{Student: %s, Badge: %s, At: %s}",
		a.StudentID, a.BadgeID, a.AwardedAt.Format(time.RFC3339))
}
