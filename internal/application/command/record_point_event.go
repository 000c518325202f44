// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD POINT EVENT COMMAND
// The single write entry point of the engine. Appends one immutable event to
// the student's point ledger. Everything else (belt, streak, badges, ranking)
// is derived from the ledger on read, so this path stays small and fast.
// ══════════════════════════════════════════════════════════════════════════════

// RecordPointEventCommand contains the data to record a point event.
type RecordPointEventCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// SubjectID scopes the event to one subject. Empty means platform-wide
	// (daily activity bonuses, manual awards).
	SubjectID string

	// Points is the signed point delta. Never zero; negative only for
	// corrections.
	Points int

	// Reason categorizes where the points came from.
	Reason ledger.Reason

	// SourceRef identifies the originating action. The ledger enforces
	// uniqueness per student, which is what makes producer retries safe.
	SourceRef string

	// OccurredAt is when the underlying action happened (defaults to now
	// if zero). Streak days are derived from this, not from RecordedAt.
	OccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate performs cheap structural checks. The full validation lives in
// ledger.NewPointEvent; this only rejects what would make the handler's
// own bookkeeping meaningless.
func (c RecordPointEventCommand) Validate() error {
	if c.StudentID == "" {
		return shared.WrapError("command", "record_point_event",
			shared.ErrInvalidEvent, "student_id is required", nil)
	}
	if c.SourceRef == "" {
		return shared.WrapError("command", "record_point_event",
			shared.ErrInvalidEvent, "source_ref is required", nil)
	}
	return nil
}

// RecordPointEventResult contains the result of recording a point event.
type RecordPointEventResult struct {
	// EventID is the ID assigned to the appended event.
	EventID string

	// StudentID is the internal ID of the student.
	StudentID string

	// TotalPoints is the student's lifetime total after the append.
	TotalPoints int

	// Belt is the student's belt after the append.
	Belt belt.Name

	// BeltChanged indicates the append moved the total across a tier
	// boundary.
	BeltChanged bool

	// PreviousBelt is the belt before the append (equal to Belt when
	// BeltChanged is false).
	PreviousBelt belt.Name

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the event was durably appended.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordPointEventHandler handles the RecordPointEventCommand.
type RecordPointEventHandler struct {
	ledgerRepo     ledger.Repository
	profileCache   profile.Cache
	eventPublisher shared.EventPublisher
}

// NewRecordPointEventHandler creates a new RecordPointEventHandler.
// profileCache and eventPublisher may be nil; the handler then skips
// invalidation and publication respectively.
func NewRecordPointEventHandler(
	ledgerRepo ledger.Repository,
	profileCache profile.Cache,
	eventPublisher shared.EventPublisher,
) *RecordPointEventHandler {
	return &RecordPointEventHandler{
		ledgerRepo:     ledgerRepo,
		profileCache:   profileCache,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the record point event command.
//
// Duplicate source refs surface as shared.ErrDuplicateSource. Producers
// that retry delivery should treat that error as success: the original
// event is already in the ledger and nothing was double-counted.
func (h *RecordPointEventHandler) Handle(ctx context.Context, cmd RecordPointEventCommand) (*RecordPointEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event, err := ledger.NewPointEvent(ledger.NewPointEventParams{
		ID:         uuid.NewString(),
		StudentID:  cmd.StudentID,
		SubjectID:  cmd.SubjectID,
		Points:     ledger.Points(cmd.Points),
		Reason:     cmd.Reason,
		SourceRef:  ledger.SourceRef(cmd.SourceRef),
		OccurredAt: occurredAt,
	})
	if err != nil {
		return nil, err
	}

	if err := h.ledgerRepo.Append(ctx, event); err != nil {
		if shared.IsDuplicateSource(err) {
			return nil, err
		}
		return nil, fmt.Errorf("record_point_event: append failed: %w", err)
	}

	// Every read between now and the next append must see this event, so
	// the cached profile has to go before we return.
	if h.profileCache != nil {
		if err := h.profileCache.Invalidate(ctx, cmd.StudentID); err != nil {
			return nil, fmt.Errorf("record_point_event: cache invalidation failed: %w", err)
		}
	}

	total, err := h.ledgerRepo.SumByStudent(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("record_point_event: failed to sum points: %w", err)
	}

	// The previous tier is derived from the post-append sum, so two
	// concurrent appends for one student can both or neither observe a
	// boundary crossing. The belt.changed event is a notification, not a
	// record: consumers needing the exact transition re-derive it from
	// the ledger.
	previousTier, err := belt.ForPoints(total - int(event.Points))
	if err != nil {
		return nil, err
	}
	currentTier, err := belt.ForPoints(total)
	if err != nil {
		return nil, err
	}

	result := &RecordPointEventResult{
		EventID:      event.ID,
		StudentID:    cmd.StudentID,
		TotalPoints:  total,
		Belt:         currentTier.Name,
		BeltChanged:  currentTier.Name != previousTier.Name,
		PreviousBelt: previousTier.Name,
		RecordedAt:   event.RecordedAt,
		Events:       make([]shared.Event, 0, 2),
	}

	recorded := shared.NewPointsRecordedEvent(event.ID, event.StudentID,
		event.SubjectID, int(event.Points), string(event.Reason), string(event.SourceRef))
	recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	result.Events = append(result.Events, recorded)

	if result.BeltChanged {
		changed := shared.NewBeltChangedEvent(event.StudentID,
			string(previousTier.Name), string(currentTier.Name), total)
		changed.BaseEvent = changed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		result.Events = append(result.Events, changed)
	}

	if h.eventPublisher != nil {
		for _, ev := range result.Events {
			// Publication is best-effort: the ledger is the source of
			// truth and subscribers re-derive state from it anyway.
			_ = h.eventPublisher.Publish(ev)
		}
	}

	return result, nil
}
