// Package ranking содержит доменную модель предметных лидербордов Dojo Hub.
package ranking

import (
	"context"
	"time"
)

// EnrollmentRepository определяет контракт чтения членства в предметах.
// Членство поставляет внешний коллаборатор (модуль записи на курсы):
// движок хранит реплику для построения лидербордов, но не владеет ею.
type EnrollmentRepository interface {
	// ListParticipants возвращает участников предмета,
	// отсортированных по дате записи (старые первыми).
	ListParticipants(ctx context.Context, subjectID string) ([]Participant, error)

	// IsEnrolled проверяет членство студента в предмете.
	IsEnrolled(ctx context.Context, subjectID, studentID string) (bool, error)

	// Upsert записывает или обновляет членство. Вызывается
	// синхронизацией с модулем записи на курсы, не движком.
	Upsert(ctx context.Context, subjectID, studentID string, enrolledAt time.Time) error
}
