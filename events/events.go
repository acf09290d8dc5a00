package events

import (
	"context"
	"sync"

	"huay/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBetSettled            EventType = "bet_settled"
	EventTypeCreditApplied         EventType = "credit_applied"
	EventTypeCommissionDistributed EventType = "commission_distributed"
	EventTypeDrawSettled           EventType = "draw_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BetSettledEvent represents a bet that transitioned out of pending
type BetSettledEvent struct {
	BetID          int64
	AccountID      int64
	PeriodID       string
	Status         models.BetStatus
	TotalWinAmount int64
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// CreditAppliedEvent represents a ledger adjustment that committed
type CreditAppliedEvent struct {
	AccountID    int64
	Reference    string
	Action       models.CreditAction
	Amount       int64
	CreditBefore int64
	CreditAfter  int64
}

func (e CreditAppliedEvent) Type() EventType {
	return EventTypeCreditApplied
}

// CommissionDistributedEvent represents a completed commission cascade
type CommissionDistributedEvent struct {
	BetID      int64
	StakeTotal int64
	TierCount  int
	Partial    bool
}

func (e CommissionDistributedEvent) Type() EventType {
	return EventTypeCommissionDistributed
}

// DrawSettledEvent represents a completed batch settlement for one period
type DrawSettledEvent struct {
	PeriodID string
	BatchID  string
	Settled  int
	Won      int
	Failed   int
}

func (e DrawSettledEvent) Type() EventType {
	return EventTypeDrawSettled
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

	// Call handlers asynchronously to avoid blocking settlement
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
// flushes them to the underlying bus only after the DB commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional buffer over the given bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context that produced them
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
