package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"ratwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan VerdictAnnouncedEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeVerdictAnnounced, func(ctx context.Context, event Event) {
		defer wg.Done()
		if verdictEvent, ok := event.(VerdictAnnouncedEvent); ok {
			select {
			case eventReceived <- verdictEvent:
			case <-time.After(1 * time.Second):
				t.Error("Timeout sending event to channel")
			}
		} else {
			t.Errorf("Expected VerdictAnnouncedEvent, got %T", event)
		}
	})

	testEvent := VerdictAnnouncedEvent{
		Watch: &models.Watch{
			ID:            42,
			GuildID:       100,
			AccusedUserID: 200,
			Status:        models.WatchStatusGuilty,
		},
		Tally: models.VoteTally{GuiltyCount: 3, NotGuiltyCount: 1},
	}

	// Publish to the transactional bus, then flush as a commit would
	transactionalBus.Publish(testEvent)
	err := transactionalBus.Flush(context.Background())
	assert.NoError(t, err)

	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, int64(42), received.Watch.ID)
		assert.Equal(t, models.WatchStatusGuilty, received.Watch.Status)
		assert.Equal(t, 3, received.Tally.GuiltyCount)
	default:
		t.Error("Event was not received")
	}
}

// TestTransactionalBusDiscard verifies rolled-back events are never delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan Event, 1)
	mainBus.Subscribe(EventTypeWatchCreated, func(ctx context.Context, event Event) {
		delivered <- event
	})

	transactionalBus.Publish(WatchCreatedEvent{Watch: &models.Watch{ID: 1}})
	transactionalBus.Discard()

	// A later flush must not replay discarded events
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-delivered:
		t.Error("Discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestBusMultipleSubscribers verifies fan-out to every handler of a type
func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	received := 0

	for i := 0; i < 2; i++ {
		bus.Subscribe(EventTypeCheckedIn, func(ctx context.Context, event Event) {
			defer wg.Done()
			mu.Lock()
			received++
			mu.Unlock()
		})
	}

	bus.Emit(context.Background(), CheckedInEvent{Watch: &models.Watch{ID: 1}})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, received)
}
