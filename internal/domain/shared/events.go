// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the progression engine. Collaborators (notifications, the
// belt-upgrade toast, the shop) subscribe to these instead of polling.
const (
	// Ledger events
	EventPointsRecorded EventType = "ledger.points_recorded"

	// Progression events
	EventBeltChanged   EventType = "progression.belt_changed"
	EventStreakUpdated EventType = "progression.streak_updated"

	// Badge events
	EventBadgeAwarded EventType = "badge.awarded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface. A bare BaseEvent carries no
// event-specific data; concrete event types shadow this with their own.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsRecordedEvent is emitted after a point event is durably appended.
type PointsRecordedEvent struct {
	BaseEvent
	EventID   string `json:"event_id"`
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id,omitempty"` // empty = platform-wide
	Points    int    `json:"points"`
	Reason    string `json:"reason"`
	SourceRef string `json:"source_ref"`
}

// Payload implements Event interface.
func (e PointsRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"event_id":   e.EventID,
		"student_id": e.StudentID,
		"subject_id": e.SubjectID,
		"points":     e.Points,
		"reason":     e.Reason,
		"source_ref": e.SourceRef,
	}
}

// NewPointsRecordedEvent creates a new PointsRecordedEvent.
func NewPointsRecordedEvent(eventID, studentID, subjectID string, points int, reason, sourceRef string) PointsRecordedEvent {
	return PointsRecordedEvent{
		BaseEvent: NewBaseEvent(EventPointsRecorded, studentID),
		EventID:   eventID,
		StudentID: studentID,
		SubjectID: subjectID,
		Points:    points,
		Reason:    reason,
		SourceRef: sourceRef,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// BeltChangedEvent is emitted when a recorded event moves the student's
// lifetime total across a tier boundary (in either direction - corrections
// can demote a belt even though badges are never revoked).
type BeltChangedEvent struct {
	BaseEvent
	StudentID   string `json:"student_id"`
	OldBelt     string `json:"old_belt"`
	NewBelt     string `json:"new_belt"`
	TotalPoints int    `json:"total_points"`
}

// Payload implements Event interface.
func (e BeltChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"old_belt":     e.OldBelt,
		"new_belt":     e.NewBelt,
		"total_points": e.TotalPoints,
	}
}

// NewBeltChangedEvent creates a new BeltChangedEvent.
func NewBeltChangedEvent(studentID, oldBelt, newBelt string, totalPoints int) BeltChangedEvent {
	return BeltChangedEvent{
		BaseEvent:   NewBaseEvent(EventBeltChanged, studentID),
		StudentID:   studentID,
		OldBelt:     oldBelt,
		NewBelt:     newBelt,
		TotalPoints: totalPoints,
	}
}

// StreakUpdatedEvent is emitted when a recorded event extends or resets
// the student's consecutive-day streak.
type StreakUpdatedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	StreakDays int    `json:"streak_days"`
	WasReset   bool   `json:"was_reset"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"streak_days": e.StreakDays,
		"was_reset":   e.WasReset,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(studentID string, streakDays int, wasReset bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventStreakUpdated, studentID),
		StudentID:  studentID,
		StreakDays: streakDays,
		WasReset:   wasReset,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Events
// ═══════════════════════════════════════════════════════════════════════════

// BadgeAwardedEvent is emitted exactly once per (student, badge) pair,
// when the badge predicate first becomes true.
type BadgeAwardedEvent struct {
	BaseEvent
	StudentID string    `json:"student_id"`
	BadgeID   string    `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"badge_id":   e.BadgeID,
		"awarded_at": e.AwardedAt,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(studentID, badgeID string, awardedAt time.Time) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, studentID),
		StudentID: studentID,
		BadgeID:   badgeID,
		AwardedAt: awardedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Infrastructure Contracts
// ═══════════════════════════════════════════════════════════════════════════

// SerializedEvent is the wire format for events crossing process boundaries.
type SerializedEvent struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
