// Package profile содержит производный геймификационный профиль студента.
// Профиль не является самостоятельным источником правды: это проекция,
// которая в любой момент обязана равняться чистой функции журнала очков
// (инвариант перепроигрывания). Кеш профиля инвалидируется на каждой
// записи, поэтому класс багов "устаревший кеш" отсутствует.
package profile

import (
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
)

// Profile - геймификационный профиль студента для чтения.
// Питает шапку дашборда, страницу геймификации и магазин кимоно.
type Profile struct {
	// StudentID - идентификатор студента.
	StudentID string

	// TotalPoints - сумма всех событий журнала студента.
	TotalPoints int

	// CurrentBelt - текущий пояс (функция TotalPoints через таблицу поясов).
	CurrentBelt belt.Name

	// StreakDays - длина серии активных дней.
	StreakDays int

	// LastActivityDate - последняя квалифицирующая дата (полночь
	// отчётного пояса). Нулевое время для студента без событий.
	LastActivityDate time.Time

	// ComputedAt - момент вычисления профиля.
	ComputedAt time.Time
}

// Zero возвращает профиль по умолчанию для студента без событий:
// ноль очков, белый пояс, без стрика. Не ошибка.
func Zero(studentID string) *Profile {
	return &Profile{
		StudentID:   studentID,
		TotalPoints: 0,
		CurrentBelt: belt.White,
		ComputedAt:  time.Now().UTC(),
	}
}

// Snapshot возвращает минимальный срез для проверки разблокировок.
func (p *Profile) Snapshot() belt.ProfileSnapshot {
	return belt.ProfileSnapshot{
		CurrentBelt: p.CurrentBelt,
		TotalPoints: p.TotalPoints,
	}
}

// HasActivity возвращает true, если у студента была активность.
func (p *Profile) HasActivity() bool {
	return !p.LastActivityDate.IsZero()
}

// String возвращает строковое представление профиля для логирования.
func (p *Profile) String() string {
	return fmt.Sprintf("Profile{%s: %d pts, %s belt, streak %d}",
		p.StudentID, p.TotalPoints, p.CurrentBelt, p.StreakDays)
}

// Clone создаёт копию профиля.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
