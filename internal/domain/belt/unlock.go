// Package belt содержит статическую таблицу поясов Dojo Hub.
package belt

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK GATE
// Чистая функция разблокировки, общая для магазина кимоно и для
// гейтинга сложности вопросов: движок не различает косметику и контент.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileSnapshot - минимальный срез профиля, необходимый для проверки
// разблокировки. Клиент, уже загрузивший профиль, может выполнять
// проверку на своей стороне без похода в движок.
type ProfileSnapshot struct {
	// CurrentBelt - текущий пояс студента.
	CurrentBelt Name

	// TotalPoints - суммарные очки за всё время.
	TotalPoints int
}

// Requirement описывает условие разблокировки предмета или контента.
type Requirement struct {
	// Tier - минимально необходимый пояс.
	Tier Name

	// Points - минимально необходимые очки.
	Points int
}

// IsUnlocked проверяет, открыт ли предмет для профиля.
// Тотальная функция без отказов: оба условия должны выполняться.
// Неизвестное имя пояса закрывает контент с обеих сторон: Order даёт
// ему номер выше любого реального пояса, поэтому профиль с опечаткой
// в поясе отсекается здесь явно, а не превосходит все требования.
func IsUnlocked(requiredTier Name, requiredPoints int, profile ProfileSnapshot) bool {
	profileOrder := Order(profile.CurrentBelt)
	if profileOrder > len(Table) {
		return false
	}
	return profileOrder >= Order(requiredTier) &&
		profile.TotalPoints >= requiredPoints
}

// Satisfies проверяет требование целиком.
func (r Requirement) Satisfies(profile ProfileSnapshot) bool {
	return IsUnlocked(r.Tier, r.Points, profile)
}
