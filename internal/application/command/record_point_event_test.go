package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/memory"
)

func profileFixture(studentID string, points int) *profile.Profile {
	tier, _ := belt.ForPoints(points)
	return &profile.Profile{
		StudentID:   studentID,
		TotalPoints: points,
		CurrentBelt: tier.Name,
		ComputedAt:  time.Now().UTC(),
	}
}

// capturingPublisher collects published events for assertions.
type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func TestRecordPointEvent_AppendsAndReturnsBelt(t *testing.T) {
	repo := memory.NewLedgerRepository()
	pub := &capturingPublisher{}
	handler := NewRecordPointEventHandler(repo, nil, pub)

	result, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		SubjectID: "math",
		Points:    50,
		Reason:    ledger.ReasonExercise,
		SourceRef: "attempt-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, 50, result.TotalPoints)
	assert.Equal(t, "white", string(result.Belt))
	assert.False(t, result.BeltChanged)
	assert.Len(t, pub.byType(shared.EventPointsRecorded), 1)
	assert.Empty(t, pub.byType(shared.EventBeltChanged))
}

func TestRecordPointEvent_DuplicateSourceRefIsRejected(t *testing.T) {
	repo := memory.NewLedgerRepository()
	handler := NewRecordPointEventHandler(repo, nil, nil)

	cmd := RecordPointEventCommand{
		StudentID: "student-1",
		SubjectID: "math",
		Points:    50,
		Reason:    ledger.ReasonExercise,
		SourceRef: "attempt-1",
	}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	// A retried delivery of the same action must not double-count.
	_, err = handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, shared.IsDuplicateSource(err))

	total, err := repo.SumByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 50, total)
	assert.Equal(t, 1, repo.Len())
}

func TestRecordPointEvent_BeltPromotionAtBoundary(t *testing.T) {
	repo := memory.NewLedgerRepository()
	pub := &capturingPublisher{}
	handler := NewRecordPointEventHandler(repo, nil, pub)

	_, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		Points:    199,
		Reason:    ledger.ReasonManualAward,
		SourceRef: "seed",
	})
	require.NoError(t, err)

	// 199 -> 205 crosses the 200-point boundary into yellow.
	result, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		SubjectID: "math",
		Points:    6,
		Reason:    ledger.ReasonExercise,
		SourceRef: "attempt-2",
	})
	require.NoError(t, err)

	assert.Equal(t, 205, result.TotalPoints)
	assert.Equal(t, "yellow", string(result.Belt))
	assert.Equal(t, "white", string(result.PreviousBelt))
	assert.True(t, result.BeltChanged)

	changed := pub.byType(shared.EventBeltChanged)
	require.Len(t, changed, 1)
	event := changed[0].(shared.BeltChangedEvent)
	assert.Equal(t, "white", event.OldBelt)
	assert.Equal(t, "yellow", event.NewBelt)
	assert.Equal(t, 205, event.TotalPoints)
}

func TestRecordPointEvent_CorrectionCanDemoteBelt(t *testing.T) {
	repo := memory.NewLedgerRepository()
	handler := NewRecordPointEventHandler(repo, nil, nil)

	_, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		Points:    210,
		Reason:    ledger.ReasonManualAward,
		SourceRef: "seed",
	})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		Points:    -20,
		Reason:    ledger.ReasonCorrection,
		SourceRef: "correction-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 190, result.TotalPoints)
	assert.Equal(t, "white", string(result.Belt))
	assert.Equal(t, "yellow", string(result.PreviousBelt))
	assert.True(t, result.BeltChanged)
}

func TestRecordPointEvent_NegativePointsOnlyForCorrections(t *testing.T) {
	handler := NewRecordPointEventHandler(memory.NewLedgerRepository(), nil, nil)

	_, err := handler.Handle(context.Background(), RecordPointEventCommand{
		StudentID: "student-1",
		Points:    -10,
		Reason:    ledger.ReasonExercise,
		SourceRef: "attempt-1",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestRecordPointEvent_InvalidatesProfileCache(t *testing.T) {
	repo := memory.NewLedgerRepository()
	cache := memory.NewProfileCache()
	handler := NewRecordPointEventHandler(repo, cache, nil)

	ctx := context.Background()
	err := cache.Set(ctx, profileFixture("student-1", 100), time.Hour, 0)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, RecordPointEventCommand{
		StudentID: "student-1",
		Points:    10,
		Reason:    ledger.ReasonExercise,
		SourceRef: "attempt-1",
	})
	require.NoError(t, err)

	cached, err := cache.Get(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRecordPointEvent_RetakesEachCountSeparately(t *testing.T) {
	repo := memory.NewLedgerRepository()
	handler := NewRecordPointEventHandler(repo, nil, nil)

	// Two attempts at the same exercise carry distinct source refs and
	// both land on the ledger.
	for _, ref := range []string{"ex-9:attempt-1", "ex-9:attempt-2"} {
		_, err := handler.Handle(context.Background(), RecordPointEventCommand{
			StudentID: "student-1",
			SubjectID: "math",
			Points:    30,
			Reason:    ledger.ReasonExercise,
			SourceRef: ref,
		})
		require.NoError(t, err)
	}

	total, err := repo.SumByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 60, total)
}
