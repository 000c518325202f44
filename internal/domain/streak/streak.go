// Package streak содержит машину состояний стрика Dojo Hub.
// Стрик - это количество подряд идущих календарных дней с хотя бы одной
// квалифицирующей активностью. Квалифицирующая дата выводится из меток
// времени событий журнала: одна дата на календарный день в отчётном
// часовом поясе платформы.
//
// Стрик никогда не "истекает" задним числом: движок хранит последнее
// вычисленное значение, а "жив ли стрик прямо сейчас" - это сравнение
// LastActivityDate с сегодняшним днём на стороне вызывающего кода
// (для удобства есть IsAlive).
package streak

import (
	"fmt"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Transition описывает, что произошло со стриком после новой даты.
type Transition string

const (
	// TransitionStarted - первая активность студента (NoActivity → 1).
	TransitionStarted Transition = "started"

	// TransitionExtended - активность на следующий день (n → n+1).
	TransitionExtended Transition = "extended"

	// TransitionReset - активность после пропуска (n → 1, без
	// постепенного уменьшения).
	TransitionReset Transition = "reset"

	// TransitionUnchanged - повторная активность в уже засчитанный
	// день (идемпотентно).
	TransitionUnchanged Transition = "unchanged"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE
// ══════════════════════════════════════════════════════════════════════════════

// Streak представляет состояние стрика студента.
// Нулевое значение - состояние NoActivity (до первого события).
type Streak struct {
	// Days - длина серии в днях. 0 означает NoActivity.
	Days int

	// LastActivityDate - последняя квалифицирующая дата,
	// нормализованная к полуночи отчётного пояса. Нулевое время
	// в состоянии NoActivity.
	LastActivityDate time.Time
}

// HasActivity возвращает true, если у студента была хоть одна активность.
func (s Streak) HasActivity() bool {
	return s.Days > 0
}

// IsAlive проверяет, жив ли стрик относительно момента now: последняя
// активность была сегодня или вчера. Удобство для вызывающего кода -
// сам движок стрик не обнуляет.
func (s Streak) IsAlive(now time.Time, loc *time.Location) bool {
	if !s.HasActivity() {
		return false
	}
	today := DayOf(now, loc)
	return s.LastActivityDate.Equal(today) || s.LastActivityDate.Equal(today.AddDate(0, 0, -1))
}

// Advance применяет новую квалифицирующую дату к стрику и возвращает
// новое состояние вместе с типом перехода. Функция чистая: исходное
// значение не изменяется.
func (s Streak) Advance(activityAt time.Time, loc *time.Location) (Streak, Transition) {
	day := DayOf(activityAt, loc)

	switch {
	case !s.HasActivity():
		return Streak{Days: 1, LastActivityDate: day}, TransitionStarted

	case day.Equal(s.LastActivityDate):
		// Тот же день уже засчитан
		return s, TransitionUnchanged

	case day.Equal(s.LastActivityDate.AddDate(0, 0, 1)):
		return Streak{Days: s.Days + 1, LastActivityDate: day}, TransitionExtended

	case day.Before(s.LastActivityDate):
		// Событие пришло задним числом и серию не меняет
		return s, TransitionUnchanged

	default:
		// Пропуск хотя бы одного дня - серия начинается заново
		return Streak{Days: 1, LastActivityDate: day}, TransitionReset
	}
}

// String возвращает строковое представление стрика для логирования.
func (s Streak) String() string {
	if !s.HasActivity() {
		return "Streak{no activity}"
	}
	return fmt.Sprintf("Streak{%d days, last %s}", s.Days, s.LastActivityDate.Format("2006-01-02"))
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVATION FROM THE LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// FromTimestamps вычисляет стрик из меток времени событий журнала.
// Порядок меток не важен: они нормализуются к датам и сортируются.
// Результат - чистая функция журнала (инвариант перепроигрывания).
func FromTimestamps(timestamps []time.Time, loc *time.Location) Streak {
	if len(timestamps) == 0 {
		return Streak{}
	}

	days := make([]time.Time, 0, len(timestamps))
	seen := make(map[time.Time]struct{}, len(timestamps))
	for _, ts := range timestamps {
		day := DayOf(ts, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var s Streak
	for _, day := range days {
		s, _ = s.Advance(day, loc)
	}
	return s
}

// DayOf нормализует момент времени к полуночи календарного дня
// в отчётном часовом поясе.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
