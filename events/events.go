package events

import (
	"context"
	"sync"

	"ratwatch/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeWatchCreated     EventType = "watch_created"
	EventTypeVotingOpened     EventType = "voting_opened"
	EventTypeVerdictAnnounced EventType = "verdict_announced"
	EventTypeCheckedIn        EventType = "checked_in"
	EventTypeWatchCancelled   EventType = "watch_cancelled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// WatchCreatedEvent represents a newly created watch
type WatchCreatedEvent struct {
	Watch *models.Watch
}

func (e WatchCreatedEvent) Type() EventType {
	return EventTypeWatchCreated
}

// VotingOpenedEvent represents a watch whose voting window just opened
type VotingOpenedEvent struct {
	Watch *models.Watch
}

func (e VotingOpenedEvent) Type() EventType {
	return EventTypeVotingOpened
}

// VerdictAnnouncedEvent represents a finalized watch with its vote tally
type VerdictAnnouncedEvent struct {
	Watch *models.Watch
	Tally models.VoteTally
}

func (e VerdictAnnouncedEvent) Type() EventType {
	return EventTypeVerdictAnnounced
}

// CheckedInEvent represents an accused user clearing their watch early
type CheckedInEvent struct {
	Watch *models.Watch
}

func (e CheckedInEvent) Type() EventType {
	return EventTypeCheckedIn
}

// WatchCancelledEvent represents a cancelled watch
type WatchCancelledEvent struct {
	Watch         *models.Watch
	CancelledByID int64
}

func (e WatchCancelledEvent) Type() EventType {
	return EventTypeWatchCancelled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit, so
// notifications are never delivered for state that was rolled back.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are processed independently of the transaction lifecycle, so
	// emission uses a background context rather than the (possibly expired)
	// transaction context.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
