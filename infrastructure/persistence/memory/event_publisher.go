package memory

import (
	"context"
	"sync"

	"peerbridge-backend/domain/events"
)

// EventPublisher records published events in memory. Tests use it to
// assert on the outbound notification stream; local runs use it as a
// stand-in for the real bus.
type EventPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

// NewEventPublisher creates a recording publisher.
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *EventPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *EventPublisher) Events() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := make([]events.DomainEvent, len(p.events))
	copy(snapshot, p.events)
	return snapshot
}

// EventTypes returns the types of everything published, in order.
func (p *EventPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.GetEventType())
	}
	return types
}
