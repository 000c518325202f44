package query

import (
	"context"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK UNLOCK QUERY
// Отвечает на вопрос "доступен ли студенту этот контент": модуль курса
// открывается, когда пояс студента не ниже требуемого И очков не меньше
// порога. Сам гейт - чистая функция над профилем; запрос лишь собирает
// профиль и вызывает её. Движок ничего не знает о контенте: требования
// приходят от вызывающей стороны.
// ══════════════════════════════════════════════════════════════════════════════

// CheckUnlockQuery содержит параметры проверки доступа.
type CheckUnlockQuery struct {
	// StudentID - идентификатор студента.
	StudentID string

	// RequiredBelt - минимальный пояс для доступа.
	RequiredBelt string

	// RequiredPoints - минимальные суммарные очки для доступа.
	RequiredPoints int
}

// Validate проверяет корректность параметров запроса.
func (q CheckUnlockQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewDomainError("query", "CheckUnlock",
			shared.ErrValidation, "student_id is required")
	}
	if q.RequiredBelt == "" {
		return shared.NewDomainError("query", "CheckUnlock",
			shared.ErrValidation, "required_belt is required")
	}
	if q.RequiredPoints < 0 {
		return shared.NewDomainError("query", "CheckUnlock",
			shared.ErrValidation, "required_points cannot be negative")
	}
	return nil
}

// CheckUnlockResult содержит результат проверки доступа.
type CheckUnlockResult struct {
	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// Unlocked - доступен ли контент.
	Unlocked bool `json:"unlocked"`

	// CurrentBelt - текущий пояс студента.
	CurrentBelt string `json:"current_belt"`

	// TotalPoints - суммарные очки студента.
	TotalPoints int `json:"total_points"`

	// MissingPoints - сколько очков не хватает до порога
	// (0, если порог достигнут).
	MissingPoints int `json:"missing_points"`

	// GeneratedAt - время проверки.
	GeneratedAt time.Time `json:"generated_at"`
}

// CheckUnlockHandler обрабатывает проверки доступа.
type CheckUnlockHandler struct {
	profiles *GetProfileHandler
}

// NewCheckUnlockHandler создаёт новый обработчик.
func NewCheckUnlockHandler(profiles *GetProfileHandler) *CheckUnlockHandler {
	return &CheckUnlockHandler{profiles: profiles}
}

// Handle выполняет проверку доступа.
// Неизвестное имя требуемого пояса оставляет контент закрытым:
// опечатка в требовании не должна открыть контент всем.
func (h *CheckUnlockHandler) Handle(ctx context.Context, query CheckUnlockQuery) (*CheckUnlockResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	prof, err := h.profiles.Handle(ctx, GetProfileQuery{StudentID: query.StudentID})
	if err != nil {
		return nil, err
	}

	snapshot := belt.ProfileSnapshot{
		CurrentBelt: belt.Name(prof.CurrentBelt),
		TotalPoints: prof.TotalPoints,
	}

	result := &CheckUnlockResult{
		StudentID:   query.StudentID,
		Unlocked:    belt.IsUnlocked(belt.Name(query.RequiredBelt), query.RequiredPoints, snapshot),
		CurrentBelt: prof.CurrentBelt,
		TotalPoints: prof.TotalPoints,
		GeneratedAt: time.Now().UTC(),
	}

	if missing := query.RequiredPoints - prof.TotalPoints; missing > 0 {
		result.MissingPoints = missing
	}

	return result, nil
}
