package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestInMemoryEventBus_DeliversToSubscribers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var received []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventPointsRecorded, func(event shared.Event) error {
		received = append(received, event)
		return nil
	}))

	event := shared.NewBaseEvent(shared.EventPointsRecorded, "student-1")
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, "student-1", received[0].AggregateID())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var beltEvents int
	require.NoError(t, bus.Subscribe(shared.EventBeltChanged, func(event shared.Event) error {
		beltEvents++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "student-1")))
	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventBeltChanged, "student-1")))

	assert.Equal(t, 1, beltEvents)
}

func TestInMemoryEventBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var all []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(event shared.Event) error {
		all = append(all, event.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "s")))
	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventBadgeAwarded, "s")))

	assert.Equal(t, []shared.EventType{shared.EventPointsRecorded, shared.EventBadgeAwarded}, all)
}

func TestInMemoryEventBus_PublishAfterClose(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "s"))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_AsyncModeRunsHandlers(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	var count int
	require.NoError(t, bus.Subscribe(shared.EventPointsRecorded, func(event shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "s")))
	}

	// Close waits for in-flight handlers.
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}

func TestInMemoryEventBus_MetricsCountExecutions(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventPointsRecorded, func(event shared.Event) error {
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventPointsRecorded, func(event shared.Event) error {
		return errors.New("boom")
	}))

	_ = bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "s"))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snap.HandlerSuccessRate, 0.001)
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

func newTestDispatcher(t *testing.T) (*Dispatcher, *InMemoryEventBus) {
	t.Helper()

	bus := newSyncBus()
	t.Cleanup(func() { _ = bus.Close() })

	cfg := DefaultDispatcherConfig(bus)
	cfg.RetryConfig.MaxRetries = 2
	cfg.RetryConfig.InitialBackoff = time.Millisecond
	cfg.RetryConfig.MaxBackoff = 5 * time.Millisecond

	d := NewDispatcher(cfg)
	t.Cleanup(func() { _ = d.Stop() })
	return d, bus
}

func TestDispatcher_DeliversPublishedEvents(t *testing.T) {
	d, bus := newTestDispatcher(t)

	done := make(chan shared.Event, 1)
	require.NoError(t, d.Register(shared.EventPointsRecorded, "capture", func(event shared.Event) error {
		done <- event
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventPointsRecorded, "student-7")))

	select {
	case event := <-done:
		assert.Equal(t, "student-7", event.AggregateID())
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d, _ := newTestDispatcher(t)

	attempts := 0
	require.NoError(t, d.RegisterSync(shared.EventPointsRecorded, "flaky", func(event shared.Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	err := d.Dispatch(shared.NewBaseEvent(shared.EventPointsRecorded, "s"))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	metrics := d.Metrics().Snapshot()
	assert.Equal(t, int64(1), metrics.RetrySuccesses)
}

func TestDispatcher_ExhaustedRetriesGoToDLQ(t *testing.T) {
	d, _ := newTestDispatcher(t)

	require.NoError(t, d.RegisterSync(shared.EventPointsRecorded, "broken", func(event shared.Event) error {
		return errors.New("permanent")
	}))

	err := d.Dispatch(shared.NewBaseEvent(shared.EventPointsRecorded, "s"))
	require.Error(t, err)

	dlq := d.DeadLetterQueue()
	require.NotNil(t, dlq)
	require.Equal(t, 1, dlq.Size())

	entry := dlq.Entries()[0]
	assert.Equal(t, "broken", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
}

func TestDispatcher_MiddlewareWrapsHandlers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	d.Use(func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			order = append(order, "before")
			err := next(event)
			order = append(order, "after")
			return err
		}
	})

	require.NoError(t, d.RegisterSync(shared.EventPointsRecorded, "h", func(event shared.Event) error {
		order = append(order, "handler")
		return nil
	}))

	require.NoError(t, d.Dispatch(shared.NewBaseEvent(shared.EventPointsRecorded, "s")))
	assert.Equal(t, []string{"before", "handler", "after"}, order)
}

func TestDispatcher_RecoveryMiddlewareCatchesPanics(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Use(RecoveryMiddleware(nil))

	require.NoError(t, d.RegisterSync(shared.EventPointsRecorded, "panics", func(event shared.Event) error {
		panic("unexpected")
	}))

	// The panic becomes an ordinary handler error, retried and parked in
	// the DLQ instead of crashing the dispatcher.
	err := d.Dispatch(shared.NewBaseEvent(shared.EventPointsRecorded, "s"))
	require.Error(t, err)
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}

func TestDispatcher_UnregisteredEventIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)

	assert.NoError(t, d.Dispatch(shared.NewBaseEvent(shared.EventStreakUpdated, "s")))
}

func TestDeadLetterQueue_EvictsOldestWhenFull(t *testing.T) {
	dlq := NewDeadLetterQueue(2)

	for i, name := range []string{"a", "b", "c"} {
		dlq.Add(DeadLetterEntry{
			Event:       shared.NewBaseEvent(shared.EventPointsRecorded, "s"),
			HandlerName: name,
			Attempts:    i + 1,
			FailedAt:    time.Now(),
		})
	}

	require.Equal(t, 2, dlq.Size())
	entries := dlq.Entries()
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)
}
