package events

import (
	"context"
	"sync"
)

// subscriberBuffer bounds each subscriber channel; slow consumers drop
// events rather than stall the engine.
const subscriberBuffer = 16

// MemoryPublisher fans events out to in-process subscribers. It backs the
// status API's live event stream and is the default publisher in tests.
type MemoryPublisher struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewMemoryPublisher creates an in-process event publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{subs: make(map[int]chan Event)}
}

// Publish implements Publisher.
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- event:
		default:
			// Drop for slow subscribers.
		}
	}
	return nil
}

// Subscribe registers a consumer. The returned cancel function must be
// called to release the subscription.
func (p *MemoryPublisher) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan Event, subscriberBuffer)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
