// Package badge содержит каталог бейджей Dojo Hub и логику их выдачи.
// Бейдж - это одноразовое достижение: выдаётся, когда предикат над
// историей студента впервые становится истинным, и никогда не
// отзывается, даже если условие позже перестало выполняться
// (бейджи - исторические факты, а не живой статус).
package badge

import (
	"fmt"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREDICATES
// Предикаты - теговые варианты, а не строковая диспетчеризация:
// новый вид предиката заставляет компилятор проверить все switch.
// ══════════════════════════════════════════════════════════════════════════════

// Predicate - запечатанный интерфейс условия разблокировки.
// Конкретные виды: PointsThreshold, StreakThreshold, ActivityCount.
type Predicate interface {
	isPredicate()
}

// PointsThreshold - условие "суммарные очки ≥ N".
type PointsThreshold struct {
	// Min - минимальный суммарный счёт.
	Min int
}

func (PointsThreshold) isPredicate() {}

// StreakThreshold - условие "стрик ≥ N дней".
type StreakThreshold struct {
	// Days - минимальная длина серии.
	Days int
}

func (StreakThreshold) isPredicate() {}

// ActivityCount - условие "N событий с указанной причиной".
type ActivityCount struct {
	// Reason - причина события журнала (например, "practice_answer").
	Reason string

	// Count - минимальное количество событий.
	Count int
}

func (ActivityCount) isPredicate() {}

// Snapshot - срез состояния студента, над которым вычисляются предикаты.
// Собирается агрегатором профиля из журнала; предикаты чистые и
// независимые - порядок их проверки не имеет значения.
type Snapshot struct {
	// StudentID - идентификатор студента.
	StudentID string

	// TotalPoints - суммарные очки за всё время.
	TotalPoints int

	// StreakDays - текущая длина стрика.
	StreakDays int

	// EventCountByReason - количество событий журнала по причинам.
	EventCountByReason map[string]int
}

// Holds вычисляет предикат над срезом. Единственное место
// диспетчеризации по видам: новый вид предиката без ветки здесь -
// ошибка конфигурации, которую ловит Catalog.Validate.
func Holds(p Predicate, snap Snapshot) (bool, error) {
	switch pred := p.(type) {
	case PointsThreshold:
		return snap.TotalPoints >= pred.Min, nil
	case StreakThreshold:
		return snap.StreakDays >= pred.Days, nil
	case ActivityCount:
		return snap.EventCountByReason[pred.Reason] >= pred.Count, nil
	default:
		return false, shared.WrapError("badge", "Evaluate", shared.ErrInvariantViolation,
			fmt.Sprintf("unknown predicate kind %T", p), nil)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Badge - статическая запись каталога.
type Badge struct {
	// ID - уникальный идентификатор бейджа.
	ID string

	// Name - отображаемое имя.
	Name string

	// Description - описание для галереи достижений.
	Description string

	// Unlock - условие разблокировки.
	Unlock Predicate
}

// Catalog - статический каталог бейджей. Конфигурация времени деплоя,
// в рантайме не изменяется.
type Catalog []Badge

// DefaultCatalog возвращает каталог бейджей платформы.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			ID:          "first_points",
			Name:        "Первые очки",
			Description: "Заработай свои первые очки",
			Unlock:      PointsThreshold{Min: 1},
		},
		{
			ID:          "points_1000",
			Name:        "Тысячник",
			Description: "Накопи 1000 очков",
			Unlock:      PointsThreshold{Min: 1000},
		},
		{
			ID:          "black_belt_points",
			Name:        "Путь мастера",
			Description: "Накопи 2000 очков - уровень чёрного пояса",
			Unlock:      PointsThreshold{Min: 2000},
		},
		{
			ID:          "streak_7",
			Name:        "Неделя без пропусков",
			Description: "Занимайся 7 дней подряд",
			Unlock:      StreakThreshold{Days: 7},
		},
		{
			ID:          "streak_30",
			Name:        "Железная дисциплина",
			Description: "Занимайся 30 дней подряд",
			Unlock:      StreakThreshold{Days: 30},
		},
		{
			ID:          "practice_10",
			Name:        "Отточенная техника",
			Description: "Дай 10 правильных ответов в практике",
			Unlock:      ActivityCount{Reason: "practice_answer", Count: 10},
		},
		{
			ID:          "exercises_25",
			Name:        "Рабочая лошадка",
			Description: "Выполни 25 упражнений",
			Unlock:      ActivityCount{Reason: "exercise_completed", Count: 25},
		},
	}
}

// Get возвращает бейдж по идентификатору.
func (c Catalog) Get(id string) (Badge, error) {
	for _, b := range c {
		if b.ID == id {
			return b, nil
		}
	}
	return Badge{}, shared.ErrBadgeNotFound
}

// Validate проверяет каталог: уникальные id, непустые имена,
// известные виды предикатов. Вызывается при старте приложения.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, b := range c {
		if b.ID == "" {
			return shared.WrapError("badge", "Validate", shared.ErrInvariantViolation, "badge with empty id", nil)
		}
		if _, dup := seen[b.ID]; dup {
			return shared.WrapError("badge", "Validate", shared.ErrInvariantViolation,
				fmt.Sprintf("duplicate badge id %q", b.ID), nil)
		}
		seen[b.ID] = struct{}{}

		if b.Unlock == nil {
			return shared.WrapError("badge", "Validate", shared.ErrInvariantViolation,
				fmt.Sprintf("badge %q has no predicate", b.ID), nil)
		}
		// Прогон предиката на пустом срезе ловит неизвестные виды
		if _, err := Holds(b.Unlock, Snapshot{}); err != nil {
			return err
		}
	}
	return nil
}
