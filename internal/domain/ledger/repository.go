// Package ledger содержит доменную модель журнала очков Dojo Hub.
package ledger

import (
	"context"
	"time"
)

// Repository определяет контракт хранения журнала очков.
// Реализация находится в infrastructure слое (PostgreSQL).
//
// Журнал append-only: контракт не содержит Update и Delete.
// Единственная точка взаимного исключения во всём движке - атомарная
// вставка с уникальностью (student_id, source_ref): конкурирующие
// повторные отправки одного действия обязаны дать ровно одно событие.
type Repository interface {
	// Append атомарно добавляет событие в журнал.
	// Возвращает shared.ErrDuplicateSource, если sourceRef уже
	// записан для этого студента (защита от двойного начисления).
	// До возврата событие должно быть durably сохранено: клиент,
	// записавший событие, обязан увидеть его в последующем чтении.
	Append(ctx context.Context, event *PointEvent) error

	// GetByID возвращает событие по идентификатору.
	GetByID(ctx context.Context, id string) (*PointEvent, error)

	// ListByStudent возвращает события студента, новые первыми.
	// limit <= 0 означает "без ограничения".
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*PointEvent, error)

	// SumByStudent возвращает сумму очков студента за всё время.
	// Для студента без событий возвращает 0.
	SumByStudent(ctx context.Context, studentID string) (int, error)

	// SumBySubjectForStudents возвращает суммы очков по предмету для
	// набора студентов, опционально ограниченные окном по occurred_at.
	// Студенты без событий в результат не попадают (вызывающий код
	// трактует отсутствие как 0).
	SumBySubjectForStudents(ctx context.Context, subjectID string, studentIDs []string, window Window) (map[string]int, error)

	// ListOccurredAt возвращает метки времени всех событий студента
	// в хронологическом порядке. Используется трекером стриков для
	// вычисления квалифицирующих дат.
	ListOccurredAt(ctx context.Context, studentID string) ([]time.Time, error)

	// CountByReason возвращает количество событий студента по каждой
	// причине. Используется предикатами бейджей вида "N действий".
	CountByReason(ctx context.Context, studentID string) (map[Reason]int, error)

	// HasSourceRef проверяет, записан ли sourceRef для студента.
	// Дешёвая проверка перед вставкой; гонку всё равно закрывает
	// уникальный индекс в Append.
	HasSourceRef(ctx context.Context, studentID string, sourceRef SourceRef) (bool, error)
}
