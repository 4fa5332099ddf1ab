package events

import (
	"context"
	"sync"
	"time"

	"fundtracker/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeSnapshotIngested   EventType = "snapshot_ingested"
	EventTypeDailyRollupUpdated EventType = "daily_rollup_updated"
	EventTypeDailyFinalized     EventType = "daily_finalized"
	EventTypeGoalsImported      EventType = "goals_imported"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// SnapshotIngestedEvent is emitted after a new snapshot has been stored
type SnapshotIngestedEvent struct {
	SnapshotID    int64
	ScrapedAt     time.Time
	TotalAmount   int64
	TotalQuantity int64
}

func (e SnapshotIngestedEvent) Type() EventType {
	return EventTypeSnapshotIngested
}

// DailyRollupUpdatedEvent is emitted after the rollup for a date has been written
type DailyRollupUpdatedEvent struct {
	Date   time.Time
	Rollup models.DailyRollup
}

func (e DailyRollupUpdatedEvent) Type() EventType {
	return EventTypeDailyRollupUpdated
}

// DailyFinalizedEvent is emitted by the once-daily finalization job
type DailyFinalizedEvent struct {
	RunID  string
	Result models.MetricsResult
}

func (e DailyFinalizedEvent) Type() EventType {
	return EventTypeDailyFinalized
}

// GoalsImportedEvent is emitted after a goal schedule import has been committed
type GoalsImportedEvent struct {
	Count    int
	From, To time.Time
}

func (e GoalsImportedEvent) Type() EventType {
	return EventTypeGoalsImported
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

// Publish emits the event detached from any request context
func (b *Bus) Publish(event Event) {
	b.Emit(context.Background(), event)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

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

// TransactionalBus holds events until the surrounding transaction commits.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush() {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	for _, ev := range b.pending {
		b.real.Publish(ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
