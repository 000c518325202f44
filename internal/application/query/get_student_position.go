package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ranking"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT POSITION QUERY
// Возвращает позицию одного студента в лидерборде предмета ("вы на 7-м
// месте из 30"). Студент не участник предмета - ErrNotEnrolled, а не
// позиция 0: вызывающая сторона должна отличать "не записан" от
// "записан с нулём очков".
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentPositionQuery содержит параметры запроса позиции.
type GetStudentPositionQuery struct {
	// SubjectID - идентификатор предмета.
	SubjectID string

	// StudentID - идентификатор студента.
	StudentID string

	// WindowStart и WindowEnd ограничивают учитываемые события
	// (нулевые значения = за всё время).
	WindowStart time.Time
	WindowEnd   time.Time
}

// Validate проверяет корректность параметров запроса.
func (q GetStudentPositionQuery) Validate() error {
	if q.SubjectID == "" {
		return shared.NewDomainError("query", "GetStudentPosition",
			shared.ErrValidation, "subject_id is required")
	}
	if q.StudentID == "" {
		return shared.NewDomainError("query", "GetStudentPosition",
			shared.ErrValidation, "student_id is required")
	}
	if !q.WindowStart.IsZero() && !q.WindowEnd.IsZero() && q.WindowEnd.Before(q.WindowStart) {
		return shared.ErrInvalidWindow
	}
	return nil
}

// GetStudentPositionResult содержит позицию студента в рейтинге.
type GetStudentPositionResult struct {
	// SubjectID - идентификатор предмета.
	SubjectID string `json:"subject_id"`

	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// Position - позиция студента (плотная, начиная с 1).
	Position int `json:"position"`

	// TotalPoints - очки студента по предмету за окно.
	TotalPoints int `json:"total_points"`

	// Medal - медаль для топ-3 (пустая строка для остальных).
	Medal string `json:"medal,omitempty"`

	// TotalStudents - общее число участников предмета.
	TotalStudents int `json:"total_students"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetStudentPositionHandler обрабатывает запросы позиции студента.
type GetStudentPositionHandler struct {
	ledgerRepo     ledger.Repository
	enrollmentRepo ranking.EnrollmentRepository
}

// NewGetStudentPositionHandler создаёт новый обработчик.
func NewGetStudentPositionHandler(
	ledgerRepo ledger.Repository,
	enrollmentRepo ranking.EnrollmentRepository,
) *GetStudentPositionHandler {
	return &GetStudentPositionHandler{
		ledgerRepo:     ledgerRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Handle выполняет запрос позиции студента.
func (h *GetStudentPositionHandler) Handle(ctx context.Context, query GetStudentPositionQuery) (*GetStudentPositionResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	enrolled, err := h.enrollmentRepo.IsEnrolled(ctx, query.SubjectID, query.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_position: enrollment check failed: %w", err)
	}
	if !enrolled {
		return nil, shared.ErrNotEnrolled
	}

	entries, err := rankSubject(ctx, h.ledgerRepo, h.enrollmentRepo, query.SubjectID,
		ledger.Window{Start: query.WindowStart, End: query.WindowEnd})
	if err != nil {
		return nil, err
	}

	entry, ok := ranking.Find(entries, query.StudentID)
	if !ok {
		// Студент прошёл проверку членства, но отсутствует в рейтинге:
		// реплика членства изменилась между двумя чтениями.
		return nil, shared.ErrNotEnrolled
	}

	return &GetStudentPositionResult{
		SubjectID:     query.SubjectID,
		StudentID:     query.StudentID,
		Position:      entry.Position,
		TotalPoints:   entry.TotalPoints,
		Medal:         string(entry.Medal),
		TotalStudents: len(entries),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}
