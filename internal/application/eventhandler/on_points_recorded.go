// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть движка: они связывают запись в
// журнал с побочными процессами (выдача бейджей, уведомления), не
// затягивая их в сам путь записи.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/application/saga"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON POINTS RECORDED HANDLER
// Запускает переоценку каталога бейджей после каждой записи в журнал.
// Выдача бейджей идемпотентна, поэтому потерянное или продублированное
// событие ничего не ломает: следующая запись того же студента доведёт
// выдачу до конца.
// ═══════════════════════════════════════════════════════════════════════════

// OnPointsRecordedHandler обрабатывает событие записи очков.
type OnPointsRecordedHandler struct {
	badgeFlow  *saga.BadgeFlowSaga
	ledgerRepo ledger.Repository
	logger     *slog.Logger
	timeout    time.Duration
}

// NewOnPointsRecordedHandler создаёт новый обработчик.
func NewOnPointsRecordedHandler(
	badgeFlow *saga.BadgeFlowSaga,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
) *OnPointsRecordedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnPointsRecordedHandler{
		badgeFlow:  badgeFlow,
		ledgerRepo: ledgerRepo,
		logger:     logger.With("handler", "on_points_recorded"),
		timeout:    10 * time.Second,
	}
}

// Handle обрабатывает событие записи очков.
// Реализует интерфейс shared.EventHandler.
func (h *OnPointsRecordedHandler) Handle(event shared.Event) error {
	recorded, ok := event.(shared.PointsRecordedEvent)
	if !ok {
		h.logger.Warn("received non-PointsRecordedEvent",
			"event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	input := saga.BadgeFlowInput{
		StudentID:     recorded.StudentID,
		CorrelationID: recorded.CorrelationID,
	}

	// occurredAt нужен только для детекции смены стрика; его отсутствие
	// не повод не проверять бейджи.
	if stored, err := h.ledgerRepo.GetByID(ctx, recorded.EventID); err == nil {
		input.TriggerOccurredAt = stored.OccurredAt
	}

	result, err := h.badgeFlow.Execute(ctx, input)
	if err != nil {
		h.logger.Error("badge evaluation failed",
			"student_id", recorded.StudentID,
			"event_id", recorded.EventID,
			"error", err)
		return err
	}

	if result.HasNewAwards() {
		h.logger.Info("badge evaluation produced new awards",
			"student_id", recorded.StudentID,
			"awards", len(result.NewAwards))
	}

	return nil
}
