package eventhandler

import (
	"log/slog"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON BELT CHANGED HANDLER
// Журналирует смены пояса и служит точкой подключения внешних
// потребителей (поздравительный тост на дашборде, магазин кимоно).
// Сам движок уведомления не доставляет - это зона ответственности
// модуля уведомлений платформы.
// ═══════════════════════════════════════════════════════════════════════════

// BeltChangeListener получает смены пояса. Реализации подключают
// внешние модули платформы (уведомления, магазин).
type BeltChangeListener interface {
	OnBeltChanged(studentID, oldBelt, newBelt string, totalPoints int)
}

// OnBeltChangedHandler обрабатывает событие смены пояса.
type OnBeltChangedHandler struct {
	listeners []BeltChangeListener
	logger    *slog.Logger
}

// NewOnBeltChangedHandler создаёт новый обработчик.
func NewOnBeltChangedHandler(logger *slog.Logger, listeners ...BeltChangeListener) *OnBeltChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnBeltChangedHandler{
		listeners: listeners,
		logger:    logger.With("handler", "on_belt_changed"),
	}
}

// Handle обрабатывает событие смены пояса.
// Реализует интерфейс shared.EventHandler.
func (h *OnBeltChangedHandler) Handle(event shared.Event) error {
	changed, ok := event.(shared.BeltChangedEvent)
	if !ok {
		h.logger.Warn("received non-BeltChangedEvent",
			"event_type", event.EventType())
		return nil
	}

	promotion := belt.Order(belt.Name(changed.NewBelt)) > belt.Order(belt.Name(changed.OldBelt))
	if promotion {
		h.logger.Info("belt promotion",
			"student_id", changed.StudentID,
			"old_belt", changed.OldBelt,
			"new_belt", changed.NewBelt,
			"total_points", changed.TotalPoints)
	} else {
		// Корректировки могут понизить пояс; бейджи при этом не
		// отзываются.
		h.logger.Info("belt demotion",
			"student_id", changed.StudentID,
			"old_belt", changed.OldBelt,
			"new_belt", changed.NewBelt,
			"total_points", changed.TotalPoints)
	}

	for _, l := range h.listeners {
		l.OnBeltChanged(changed.StudentID, changed.OldBelt, changed.NewBelt, changed.TotalPoints)
	}

	return nil
}
