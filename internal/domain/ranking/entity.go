// Package ranking содержит доменную модель предметных лидербордов Dojo Hub.
// Лидерборд всегда пересчитывается из журнала очков на чтении - без
// инкрементального кеша, чтобы корректировки и ретроактивные события
// не могли оставить устаревшую позицию.
package ranking

import (
	"fmt"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Medal представляет медаль за призовое место.
type Medal string

const (
	// MedalGold - первое место.
	MedalGold Medal = "🥇"
	// MedalSilver - второе место.
	MedalSilver Medal = "🥈"
	// MedalBronze - третье место.
	MedalBronze Medal = "🥉"
	// MedalNone - без медали.
	MedalNone Medal = ""
)

// MedalForPosition возвращает медаль для позиции (1-based).
func MedalForPosition(position int) Medal {
	switch position {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNone
	}
}

// TopPerformersCount - размер пьедестала.
const TopPerformersCount = 3

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка лидерборда. Результат запроса, не хранится.
type Entry struct {
	// SubjectID - предмет лидерборда.
	SubjectID string

	// StudentID - идентификатор студента.
	StudentID string

	// TotalPoints - очки по предмету (за всё время или за окно).
	TotalPoints int

	// Position - позиция, начиная с 1. Плотный ранг: равные очки
	// никогда не делят позицию - тай-брейк даёт строгий порядок.
	Position int

	// Medal - медаль для позиций 1-3.
	Medal Medal
}

// String возвращает строковое представление строки для логирования.
func (e Entry) String() string {
	return fmt.Sprintf("Entry{#%d %s: %d pts}", e.Position, e.StudentID, e.TotalPoints)
}

// Participant - участник лидерборда. Членство в предмете поставляет
// внешний коллаборатор (модуль записи на курсы); движок его только читает.
type Participant struct {
	// StudentID - идентификатор студента.
	StudentID string

	// EnrolledAt - дата записи на предмет. Первый критерий тай-брейка:
	// при равных очках выше стоит записавшийся раньше.
	EnrolledAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// RANK COMPUTATION
// ══════════════════════════════════════════════════════════════════════════════

// Rank строит полный лидерборд предмета: чистая функция от участников
// и их очков. Участники без событий получают 0 очков, но остаются
// в таблице (записан - значит участвует).
//
// Порядок: очки по убыванию, затем дата записи по возрастанию, затем
// id студента. Тай-брейк полный, поэтому выход стабилен между
// повторными вызовами с одинаковым входом - никакого скрытого
// недетерминизма от порядка итерации хранилища.
func Rank(subjectID string, participants []Participant, scores map[string]int) []Entry {
	entries := make([]Entry, 0, len(participants))
	enrolledAt := make(map[string]time.Time, len(participants))

	for _, p := range participants {
		enrolledAt[p.StudentID] = p.EnrolledAt
		entries = append(entries, Entry{
			SubjectID:   subjectID,
			StudentID:   p.StudentID,
			TotalPoints: scores[p.StudentID],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		ei, ej := enrolledAt[entries[i].StudentID], enrolledAt[entries[j].StudentID]
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	for i := range entries {
		entries[i].Position = i + 1
		entries[i].Medal = MedalForPosition(i + 1)
	}

	return entries
}

// Top возвращает первые n строк готового лидерборда, не пересчитывая
// позиции: усечение списка не меняет ранги за его пределами.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	result := make([]Entry, n)
	copy(result, entries[:n])
	return result
}

// Find возвращает строку студента в готовом лидерборде.
func Find(entries []Entry, studentID string) (Entry, bool) {
	for _, e := range entries {
		if e.StudentID == studentID {
			return e, true
		}
	}
	return Entry{}, false
}
