package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event.
type Event interface {
	GetEventType() string
	GetTimestamp() time.Time
	GetParticipantID() int64
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	ParticipantID int64     `json:"participant_id"`
}

// GetEventType returns the event type.
func (e *BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns the event timestamp.
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetParticipantID returns the participant the event concerns.
func (e *BaseEvent) GetParticipantID() int64 { return e.ParticipantID }

// Handler consumes events of a subscribed type.
type Handler func(ctx context.Context, event Event)

// ===============================
// EVENT BUS
// ===============================

// EventBus is a synchronous in-process publish/subscribe bus. The
// notification collaborator subscribes here; the core only publishes.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType string, handler Handler)
}

type inMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewEventBus creates an in-process event bus.
func NewEventBus(logger *zap.Logger) EventBus {
	return &inMemoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *inMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *inMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					b.logger.Error("Event handler panicked",
						zap.String("event_type", event.GetEventType()),
						zap.Any("panic", p),
					)
				}
			}()
			handler(ctx, event)
		}()
	}
}
