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
// GET SUBJECT RANKING QUERY
// Строит лидерборд предмета: сумма очков по предмету для всех участников,
// детерминированный порядок, плотные позиции. Рейтинг всегда пересчитывается
// из журнала на чтении и никогда не кешируется: после записи события
// следующий запрос обязан увидеть новый порядок.
// ══════════════════════════════════════════════════════════════════════════════

// GetSubjectRankingQuery содержит параметры запроса лидерборда предмета.
type GetSubjectRankingQuery struct {
	// SubjectID - идентификатор предмета.
	SubjectID string

	// WindowStart и WindowEnd ограничивают учитываемые события по
	// occurredAt (включительно с обеих сторон). Нулевые значения
	// означают "за всё время".
	WindowStart time.Time
	WindowEnd   time.Time

	// Limit - количество записей (по умолчанию 50, максимум 200,
	// 0 = по умолчанию).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetSubjectRankingQuery) Validate() error {
	if q.SubjectID == "" {
		return shared.NewDomainError("query", "GetSubjectRanking",
			shared.ErrValidation, "subject_id is required")
	}
	if !q.WindowStart.IsZero() && !q.WindowEnd.IsZero() && q.WindowEnd.Before(q.WindowStart) {
		return shared.ErrInvalidWindow
	}
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("query", "GetSubjectRanking",
			shared.ErrValidation, "limit and offset cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	return nil
}

// RankingEntryDTO - DTO записи лидерборда предмета.
type RankingEntryDTO struct {
	// Position - позиция в рейтинге (плотная, начиная с 1; равные
	// очки не делят позицию).
	Position int `json:"position"`

	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// TotalPoints - очки по предмету за окно.
	TotalPoints int `json:"total_points"`

	// Medal - медаль для топ-3 (пустая строка для остальных).
	Medal string `json:"medal,omitempty"`
}

// GetSubjectRankingResult содержит результат запроса лидерборда.
type GetSubjectRankingResult struct {
	// SubjectID - идентификатор предмета.
	SubjectID string `json:"subject_id"`

	// Entries - страница записей лидерборда.
	Entries []RankingEntryDTO `json:"entries"`

	// TotalStudents - общее число участников предмета.
	TotalStudents int `json:"total_students"`

	// HasMore - есть ли записи после текущей страницы.
	HasMore bool `json:"has_more"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetSubjectRankingHandler обрабатывает запросы лидерборда предмета.
type GetSubjectRankingHandler struct {
	ledgerRepo     ledger.Repository
	enrollmentRepo ranking.EnrollmentRepository
}

// NewGetSubjectRankingHandler создаёт новый обработчик.
func NewGetSubjectRankingHandler(
	ledgerRepo ledger.Repository,
	enrollmentRepo ranking.EnrollmentRepository,
) *GetSubjectRankingHandler {
	return &GetSubjectRankingHandler{
		ledgerRepo:     ledgerRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Handle выполняет запрос лидерборда предмета.
// Предмет без участников - не ошибка: возвращается пустой лидерборд.
func (h *GetSubjectRankingHandler) Handle(ctx context.Context, query GetSubjectRankingQuery) (*GetSubjectRankingResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	entries, err := rankSubject(ctx, h.ledgerRepo, h.enrollmentRepo, query.SubjectID,
		ledger.Window{Start: query.WindowStart, End: query.WindowEnd})
	if err != nil {
		return nil, err
	}

	result := &GetSubjectRankingResult{
		SubjectID:     query.SubjectID,
		TotalStudents: len(entries),
		GeneratedAt:   time.Now().UTC(),
	}

	start := query.Offset
	if start > len(entries) {
		start = len(entries)
	}
	end := start + query.Limit
	if end > len(entries) {
		end = len(entries)
	}

	result.Entries = toRankingDTOs(entries[start:end])
	result.HasMore = end < len(entries)

	return result, nil
}

// rankSubject - общий путь построения рейтинга для всех ранговых
// запросов: участники из реплики членства, суммы из журнала, чистая
// функция ранжирования поверх.
func rankSubject(
	ctx context.Context,
	ledgerRepo ledger.Repository,
	enrollmentRepo ranking.EnrollmentRepository,
	subjectID string,
	window ledger.Window,
) ([]ranking.Entry, error) {
	participants, err := enrollmentRepo.ListParticipants(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("ranking: failed to list participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, nil
	}

	studentIDs := make([]string, len(participants))
	for i, p := range participants {
		studentIDs[i] = p.StudentID
	}

	scores, err := ledgerRepo.SumBySubjectForStudents(ctx, subjectID, studentIDs, window)
	if err != nil {
		return nil, fmt.Errorf("ranking: failed to sum subject points: %w", err)
	}

	return ranking.Rank(subjectID, participants, scores), nil
}

// toRankingDTOs конвертирует доменные записи в DTO.
func toRankingDTOs(entries []ranking.Entry) []RankingEntryDTO {
	dtos := make([]RankingEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = RankingEntryDTO{
			Position:    e.Position,
			StudentID:   e.StudentID,
			TotalPoints: e.TotalPoints,
			Medal:       string(e.Medal),
		}
	}
	return dtos
}
