package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POINTS HISTORY QUERY
// Возвращает события журнала студента, новые первыми. Питает ленту
// "как я заработал свои очки" на странице геймификации. Журнал
// append-only, поэтому история никогда не переписывается: корректировки
// видны как отдельные отрицательные события.
// ══════════════════════════════════════════════════════════════════════════════

// GetPointsHistoryQuery содержит параметры запроса истории очков.
type GetPointsHistoryQuery struct {
	// StudentID - идентификатор студента.
	StudentID string

	// Limit - количество записей (по умолчанию 20, максимум 100,
	// 0 = по умолчанию).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetPointsHistoryQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewDomainError("query", "GetPointsHistory",
			shared.ErrValidation, "student_id is required")
	}
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetPointsHistory",
			shared.ErrValidation, "limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// PointEventDTO - DTO события журнала очков.
type PointEventDTO struct {
	// ID - идентификатор события.
	ID string `json:"id"`

	// SubjectID - предмет события (пустая строка = платформенное).
	SubjectID string `json:"subject_id,omitempty"`

	// Points - начисленные очки (отрицательные для корректировок).
	Points int `json:"points"`

	// Reason - причина начисления.
	Reason string `json:"reason"`

	// OccurredAt - момент квалифицирующего действия.
	OccurredAt time.Time `json:"occurred_at"`

	// RecordedAt - момент записи в журнал.
	RecordedAt time.Time `json:"recorded_at"`
}

// GetPointsHistoryResult содержит страницу истории очков.
type GetPointsHistoryResult struct {
	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// Events - события журнала, новые первыми.
	Events []PointEventDTO `json:"events"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetPointsHistoryHandler обрабатывает запросы истории очков.
type GetPointsHistoryHandler struct {
	ledgerRepo ledger.Repository
}

// NewGetPointsHistoryHandler создаёт новый обработчик.
func NewGetPointsHistoryHandler(ledgerRepo ledger.Repository) *GetPointsHistoryHandler {
	return &GetPointsHistoryHandler{ledgerRepo: ledgerRepo}
}

// Handle выполняет запрос истории очков.
func (h *GetPointsHistoryHandler) Handle(ctx context.Context, query GetPointsHistoryQuery) (*GetPointsHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	events, err := h.ledgerRepo.ListByStudent(ctx, query.StudentID, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_points_history: failed to list events: %w", err)
	}

	dtos := make([]PointEventDTO, len(events))
	for i, e := range events {
		dtos[i] = PointEventDTO{
			ID:         e.ID,
			SubjectID:  e.SubjectID,
			Points:     int(e.Points),
			Reason:     string(e.Reason),
			OccurredAt: e.OccurredAt,
			RecordedAt: e.RecordedAt,
		}
	}

	return &GetPointsHistoryResult{
		StudentID:   query.StudentID,
		Events:      dtos,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
