// Package events carries domain events between modules so producers (the
// quotation lifecycle) never import their consumers (notifications, the
// scheduler). Platform layer only; event payloads are defined by the domains.
package events

import (
	"context"
	"time"
)

// Event is implemented by every published domain event.
type Event interface {
	// EventName identifies the event type for subscription matching.
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all event payloads. Embed it and
// implement EventName on the concrete type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt reports when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle invokes the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish fans the event out to its subscribers without waiting for
	// them; handler failures are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync fans out and blocks until every handler has finished,
	// returning the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for events whose EventName matches.
	Subscribe(eventName string, handler Handler)
}
