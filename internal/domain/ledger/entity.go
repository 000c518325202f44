// Package ledger содержит доменную модель журнала очков Dojo Hub.
// Журнал - это append-only список событий начисления очков и
// единственный источник правды для суммарного счёта студента.
// Событие никогда не редактируется и не удаляется: корректировка -
// это новое событие с отрицательными очками, а не правка старого.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Reason представляет причину начисления очков.
type Reason string

const (
	// ReasonExercise - выполнение упражнения.
	ReasonExercise Reason = "exercise_completed"

	// ReasonAssessment - проверенная работа (контрольная, тест).
	ReasonAssessment Reason = "assessment_corrected"

	// ReasonDailyActivity - ежедневная активность (вход, чекпоинт дня).
	ReasonDailyActivity Reason = "daily_activity"

	// ReasonPractice - правильный ответ в практике.
	ReasonPractice Reason = "practice_answer"

	// ReasonManualAward - ручное начисление преподавателем.
	ReasonManualAward Reason = "manual_award"

	// ReasonCorrection - корректировка (единственная причина,
	// для которой допускаются отрицательные очки).
	ReasonCorrection Reason = "correction"
)

// IsValid проверяет, что причина известна движку.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonExercise, ReasonAssessment, ReasonDailyActivity,
		ReasonPractice, ReasonManualAward, ReasonCorrection:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление причины.
func (r Reason) String() string {
	return string(r)
}

// Points представляет количество очков в событии.
// Ноль запрещён; отрицательные значения допустимы только для корректировок.
type Points int

// IsValid проверяет, что очки ненулевые.
func (p Points) IsValid() bool {
	return p != 0
}

// SourceRef - непрозрачный идентификатор действия, породившего событие
// (например, id попытки упражнения). Используется для идемпотентной
// защиты от двойного начисления: одно действие - одно событие.
type SourceRef string

// IsValid проверяет, что ссылка непустая и без пробельных символов.
func (s SourceRef) IsValid() bool {
	str := string(s)
	return len(str) > 0 && len(str) <= 200 && !strings.ContainsAny(str, " \t\n\r")
}

// String возвращает строковое представление ссылки.
func (s SourceRef) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: POINT EVENT
// ══════════════════════════════════════════════════════════════════════════════

// PointEvent - неизменяемое событие начисления очков.
// Создаётся внешними коллабораторами (упражнения, проверка работ,
// ежедневный вход) в момент завершения квалифицирующего действия.
type PointEvent struct {
	// ID - уникальный идентификатор события (UUID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// SubjectID - идентификатор предмета. Пустая строка означает
	// платформенное событие, не привязанное к предмету.
	SubjectID string

	// Points - начисленные очки (положительные для наград,
	// отрицательные только для корректировок).
	Points Points

	// Reason - причина начисления.
	Reason Reason

	// SourceRef - идентификатор породившего действия (ключ дедупликации
	// в рамках одного студента).
	SourceRef SourceRef

	// OccurredAt - момент квалифицирующего действия.
	OccurredAt time.Time

	// RecordedAt - момент записи события в журнал.
	RecordedAt time.Time
}

// NewPointEventParams содержит параметры для создания события.
type NewPointEventParams struct {
	ID         string
	StudentID  string
	SubjectID  string
	Points     Points
	Reason     Reason
	SourceRef  SourceRef
	OccurredAt time.Time
}

// NewPointEvent создаёт новое событие с валидацией всех полей.
// Все отказы валидации - ErrInvalidEvent: один и тот же вход
// упадёт снова, ретраить бессмысленно.
func NewPointEvent(params NewPointEventParams) (*PointEvent, error) {
	if params.ID == "" {
		return nil, invalid("event id is required")
	}
	if params.StudentID == "" {
		return nil, invalid("student id is required")
	}
	if !params.Points.IsValid() {
		return nil, invalid("points must be non-zero")
	}
	if !params.Reason.IsValid() {
		return nil, invalid(fmt.Sprintf("unknown reason %q", params.Reason))
	}
	if params.Points < 0 && params.Reason != ReasonCorrection {
		return nil, invalid("negative points are allowed only for corrections")
	}
	if !params.SourceRef.IsValid() {
		return nil, invalid("source ref is required")
	}
	if params.OccurredAt.IsZero() {
		return nil, invalid("occurred_at is required")
	}

	return &PointEvent{
		ID:         params.ID,
		StudentID:  params.StudentID,
		SubjectID:  params.SubjectID,
		Points:     params.Points,
		Reason:     params.Reason,
		SourceRef:  params.SourceRef,
		OccurredAt: params.OccurredAt,
		RecordedAt: time.Now().UTC(),
	}, nil
}

func invalid(message string) error {
	return shared.WrapError("ledger", "Validate", shared.ErrValidation, message, shared.ErrInvalidEvent)
}

// IsPlatformWide возвращает true для событий без привязки к предмету.
func (e *PointEvent) IsPlatformWide() bool {
	return e.SubjectID == ""
}

// IsCorrection возвращает true для корректировочных событий.
func (e *PointEvent) IsCorrection() bool {
	return e.Reason == ReasonCorrection
}

// String возвращает строковое представление события для логирования.
func (e *PointEvent) String() string {
	return fmt.Sprintf(
		"PointEvent{ID: %s, Student: %s, Points: %d, Reason: %s, Source: %s}",
		e.ID, e.StudentID, e.Points, e.Reason, e.SourceRef,
	)
}

// Clone создаёт копию события.
func (e *PointEvent) Clone() *PointEvent {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// Window - включительный диапазон [Start, End] для оконных запросов
// (периодические лидерборды). Нулевой Window означает "за всё время".
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero возвращает true для пустого окна (без ограничения по времени).
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// IsValid проверяет, что конец окна не раньше начала.
func (w Window) IsValid() bool {
	if w.IsZero() {
		return true
	}
	return !w.End.Before(w.Start)
}

// Contains проверяет, попадает ли момент в окно (границы включительно).
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}
