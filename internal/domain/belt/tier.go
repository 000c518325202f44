// Package belt содержит статическую таблицу поясов Dojo Hub.
// Пояс - это классификация студента по накопленным очкам (белый → чёрный).
// Таблица поясов - единственный источник правды для всех экранов:
// дашборд, лидерборд, магазин кимоно и уведомления о повышении
// обязаны использовать этот пакет вместо собственных таблиц порогов.
package belt

import (
	"fmt"
	"math"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Name представляет имя пояса.
type Name string

const (
	// White - белый пояс, стартовый уровень.
	White Name = "white"
	// Yellow - жёлтый пояс.
	Yellow Name = "yellow"
	// Orange - оранжевый пояс.
	Orange Name = "orange"
	// Green - зелёный пояс.
	Green Name = "green"
	// Blue - синий пояс.
	Blue Name = "blue"
	// Purple - фиолетовый пояс.
	Purple Name = "purple"
	// Brown - коричневый пояс.
	Brown Name = "brown"
	// Black - чёрный пояс, терминальный уровень.
	Black Name = "black"
)

// IsValid проверяет, что имя пояса присутствует в таблице.
func (n Name) IsValid() bool {
	for _, t := range Table {
		if t.Name == n {
			return true
		}
	}
	return false
}

// String возвращает строковое представление имени пояса.
func (n Name) String() string {
	return string(n)
}

// Unbounded обозначает отсутствие верхней границы очков (чёрный пояс).
const Unbounded = math.MaxInt

// Tier представляет один пояс: имя и включительный диапазон очков.
type Tier struct {
	// Order - порядковый номер пояса (1 = белый, 8 = чёрный).
	Order int

	// Name - имя пояса.
	Name Name

	// MinPoints - нижняя граница диапазона (включительно).
	MinPoints int

	// MaxPoints - верхняя граница диапазона (включительно).
	// Для терминального пояса равна Unbounded.
	MaxPoints int
}

// Contains проверяет, попадают ли очки в диапазон пояса.
func (t Tier) Contains(points int) bool {
	return points >= t.MinPoints && points <= t.MaxPoints
}

// IsTerminal возвращает true для последнего пояса ("максимальный уровень
// достигнут" - валидное терминальное состояние, а не ошибка).
func (t Tier) IsTerminal() bool {
	return t.MaxPoints == Unbounded
}

// String возвращает строковое представление пояса для логирования.
func (t Tier) String() string {
	if t.IsTerminal() {
		return fmt.Sprintf("Tier{%d: %s, %d+}", t.Order, t.Name, t.MinPoints)
	}
	return fmt.Sprintf("Tier{%d: %s, %d-%d}", t.Order, t.Name, t.MinPoints, t.MaxPoints)
}

// ══════════════════════════════════════════════════════════════════════════════
// TIER TABLE
// ══════════════════════════════════════════════════════════════════════════════

// Table - упорядоченная таблица поясов. Инвариант: диапазоны покрывают
// [0, ∞) без разрывов и пересечений, MinPoints строго возрастает.
// Таблица - конфигурация времени деплоя, в рантайме не изменяется.
var Table = []Tier{
	{Order: 1, Name: White, MinPoints: 0, MaxPoints: 199},
	{Order: 2, Name: Yellow, MinPoints: 200, MaxPoints: 399},
	{Order: 3, Name: Orange, MinPoints: 400, MaxPoints: 599},
	{Order: 4, Name: Green, MinPoints: 600, MaxPoints: 899},
	{Order: 5, Name: Blue, MinPoints: 900, MaxPoints: 1199},
	{Order: 6, Name: Purple, MinPoints: 1200, MaxPoints: 1599},
	{Order: 7, Name: Brown, MinPoints: 1600, MaxPoints: 1999},
	{Order: 8, Name: Black, MinPoints: 2000, MaxPoints: Unbounded},
}

// ValidateTable проверяет инварианты таблицы поясов.
// Вызывается один раз при старте приложения: сломанная таблица - это
// баг конфигурации, падать нужно сразу, а не на каждом запросе.
func ValidateTable() error {
	return validate(Table)
}

func validate(table []Tier) error {
	if len(table) == 0 {
		return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation, "tier table is empty", nil)
	}

	if table[0].MinPoints != 0 {
		return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation,
			fmt.Sprintf("first tier must start at 0, got %d", table[0].MinPoints), nil)
	}

	for i, t := range table {
		if t.Order != i+1 {
			return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation,
				fmt.Sprintf("tier %q has order %d, expected %d", t.Name, t.Order, i+1), nil)
		}
		if t.MaxPoints < t.MinPoints {
			return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation,
				fmt.Sprintf("tier %q has inverted range", t.Name), nil)
		}
		if i > 0 && t.MinPoints != table[i-1].MaxPoints+1 {
			// Разрыв или пересечение между соседними поясами
			return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation,
				fmt.Sprintf("gap or overlap between %q and %q", table[i-1].Name, t.Name), nil)
		}
	}

	if !table[len(table)-1].IsTerminal() {
		return shared.WrapError("belt", "Validate", shared.ErrInvariantViolation,
			"last tier must be unbounded", nil)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUPS
// ══════════════════════════════════════════════════════════════════════════════

// ForPoints возвращает пояс для указанного количества очков.
// Отрицательный итог (возможен после корректировок) приводится к белому поясу.
// Ошибка возвращается только для сломанной таблицы - это ошибка
// конфигурации, а не рантайма.
func ForPoints(points int) (Tier, error) {
	if points < 0 {
		points = 0
	}

	// Таблица из 8 строк: линейный поиск дешевле бинарного.
	for _, t := range Table {
		if t.Contains(points) {
			return t, nil
		}
	}

	return Tier{}, shared.WrapError("belt", "Lookup", shared.ErrInvariantViolation,
		fmt.Sprintf("no tier contains %d points", points), nil)
}

// ByName возвращает пояс по имени.
func ByName(name Name) (Tier, error) {
	for _, t := range Table {
		if t.Name == name {
			return t, nil
		}
	}
	return Tier{}, shared.ErrUnknownTier
}

// Next возвращает следующий пояс после указанного.
// Для чёрного пояса возвращает (Tier{}, false): выше расти некуда.
func Next(current Tier) (Tier, bool) {
	for i, t := range Table {
		if t.Name == current.Name {
			if i+1 < len(Table) {
				return Table[i+1], true
			}
			return Tier{}, false
		}
	}
	return Tier{}, false
}

// Order возвращает порядковый номер пояса по имени.
// Неизвестное имя получает номер больше любого реального пояса,
// чтобы проверки разблокировки никогда не открывали контент по опечатке.
func Order(name Name) int {
	for _, t := range Table {
		if t.Name == name {
			return t.Order
		}
	}
	return len(Table) + 1
}

// PointsToNext возвращает, сколько очков не хватает до следующего пояса.
// Для чёрного пояса возвращает 0.
func PointsToNext(points int) int {
	current, err := ForPoints(points)
	if err != nil {
		return 0
	}
	next, ok := Next(current)
	if !ok {
		return 0
	}
	return next.MinPoints - points
}
