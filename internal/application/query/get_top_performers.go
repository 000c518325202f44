package query

import (
	"context"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ranking"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TOP PERFORMERS QUERY
// Возвращает топ-3 студентов предмета с медалями для виджета дашборда.
// Частный случай полного рейтинга: порядок и позиции обязаны совпадать
// с первыми тремя записями полного лидерборда.
// ══════════════════════════════════════════════════════════════════════════════

// GetTopPerformersQuery содержит параметры запроса топа.
type GetTopPerformersQuery struct {
	// SubjectID - идентификатор предмета.
	SubjectID string

	// WindowStart и WindowEnd ограничивают учитываемые события
	// (нулевые значения = за всё время).
	WindowStart time.Time
	WindowEnd   time.Time
}

// Validate проверяет корректность параметров запроса.
func (q GetTopPerformersQuery) Validate() error {
	if q.SubjectID == "" {
		return shared.NewDomainError("query", "GetTopPerformers",
			shared.ErrValidation, "subject_id is required")
	}
	if !q.WindowStart.IsZero() && !q.WindowEnd.IsZero() && q.WindowEnd.Before(q.WindowStart) {
		return shared.ErrInvalidWindow
	}
	return nil
}

// GetTopPerformersResult содержит результат запроса топа.
type GetTopPerformersResult struct {
	// SubjectID - идентификатор предмета.
	SubjectID string `json:"subject_id"`

	// Performers - до трёх записей с медалями. Меньше трёх участников -
	// меньше записей, это не ошибка.
	Performers []RankingEntryDTO `json:"performers"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetTopPerformersHandler обрабатывает запросы топ-исполнителей.
type GetTopPerformersHandler struct {
	ledgerRepo     ledger.Repository
	enrollmentRepo ranking.EnrollmentRepository
}

// NewGetTopPerformersHandler создаёт новый обработчик.
func NewGetTopPerformersHandler(
	ledgerRepo ledger.Repository,
	enrollmentRepo ranking.EnrollmentRepository,
) *GetTopPerformersHandler {
	return &GetTopPerformersHandler{
		ledgerRepo:     ledgerRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Handle выполняет запрос топ-исполнителей.
func (h *GetTopPerformersHandler) Handle(ctx context.Context, query GetTopPerformersQuery) (*GetTopPerformersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	entries, err := rankSubject(ctx, h.ledgerRepo, h.enrollmentRepo, query.SubjectID,
		ledger.Window{Start: query.WindowStart, End: query.WindowEnd})
	if err != nil {
		return nil, err
	}

	return &GetTopPerformersResult{
		SubjectID:   query.SubjectID,
		Performers:  toRankingDTOs(ranking.Top(entries, ranking.TopPerformersCount)),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
