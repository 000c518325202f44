package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT BADGES QUERY
// Возвращает весь каталог бейджей с пометкой, какие из них выданы
// студенту. Питает галерею достижений: заблокированные бейджи
// показываются серыми, выданные - с датой получения.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentBadgesQuery содержит параметры запроса бейджей.
type GetStudentBadgesQuery struct {
	// StudentID - идентификатор студента.
	StudentID string

	// OnlyAwarded - вернуть только выданные бейджи.
	OnlyAwarded bool
}

// Validate проверяет корректность параметров запроса.
func (q GetStudentBadgesQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewDomainError("query", "GetStudentBadges",
			shared.ErrValidation, "student_id is required")
	}
	return nil
}

// BadgeStatusDTO - DTO бейджа каталога со статусом выдачи.
type BadgeStatusDTO struct {
	// ID - идентификатор бейджа.
	ID string `json:"id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// Description - описание бейджа.
	Description string `json:"description"`

	// Awarded - выдан ли бейдж студенту.
	Awarded bool `json:"awarded"`

	// AwardedAt - время выдачи (null для невыданных).
	AwardedAt *time.Time `json:"awarded_at,omitempty"`
}

// GetStudentBadgesResult содержит каталог со статусами выдачи.
type GetStudentBadgesResult struct {
	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// Badges - бейджи в порядке каталога.
	Badges []BadgeStatusDTO `json:"badges"`

	// AwardedCount - число выданных бейджей.
	AwardedCount int `json:"awarded_count"`

	// TotalCount - размер каталога.
	TotalCount int `json:"total_count"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetStudentBadgesHandler обрабатывает запросы бейджей студента.
type GetStudentBadgesHandler struct {
	awardRepo badge.AwardRepository
	catalog   badge.Catalog
}

// NewGetStudentBadgesHandler создаёт новый обработчик.
func NewGetStudentBadgesHandler(awardRepo badge.AwardRepository, catalog badge.Catalog) *GetStudentBadgesHandler {
	return &GetStudentBadgesHandler{
		awardRepo: awardRepo,
		catalog:   catalog,
	}
}

// Handle выполняет запрос бейджей студента.
func (h *GetStudentBadgesHandler) Handle(ctx context.Context, query GetStudentBadgesQuery) (*GetStudentBadgesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	awards, err := h.awardRepo.ListByStudent(ctx, query.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_badges: failed to list awards: %w", err)
	}

	awardedAt := make(map[string]time.Time, len(awards))
	for _, a := range awards {
		awardedAt[a.BadgeID] = a.AwardedAt
	}

	result := &GetStudentBadgesResult{
		StudentID:   query.StudentID,
		Badges:      make([]BadgeStatusDTO, 0, len(h.catalog)),
		TotalCount:  len(h.catalog),
		GeneratedAt: time.Now().UTC(),
	}

	for _, b := range h.catalog {
		dto := BadgeStatusDTO{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
		}
		if at, ok := awardedAt[b.ID]; ok {
			dto.Awarded = true
			t := at
			dto.AwardedAt = &t
			result.AwardedCount++
		} else if query.OnlyAwarded {
			continue
		}
		result.Badges = append(result.Badges, dto)
	}

	return result, nil
}
